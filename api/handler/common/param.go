package common

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/syncwatch/syncwatch/types"
)

// CIDv0 hashes are 46 base58 characters starting with Qm.
const deploymentIDLength = 46

func GetParams(c *fiber.Ctx, key string) (string, error) {
	value := c.Params(key)
	if value == "" {
		return "", types.NewBadRequestError(fmt.Sprintf("missing parameter: %s", key))
	}
	return value, nil
}

func GetDeploymentIDParam(c *fiber.Ctx) (string, error) {
	id, err := GetParams(c, "id")
	if err != nil {
		return "", err
	}
	if len(id) != deploymentIDLength || !strings.HasPrefix(id, "Qm") {
		return "", types.NewInvalidValueError("id", id, "must be an IPFS hash")
	}
	return id, nil
}

// GetBoolQuery reads an optional boolean query parameter, defaulting to
// false when absent.
func GetBoolQuery(c *fiber.Ctx, key string) (bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, types.NewInvalidValueError(key, raw, "must be a boolean")
	}
	return v, nil
}
