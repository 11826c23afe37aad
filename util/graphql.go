package util

import (
	"encoding/json"
	"strings"

	"github.com/syncwatch/syncwatch/types"
)

// GraphQLRequest is the POST body of a GraphQL query.
type GraphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type GraphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse[T any] struct {
	Data   *T             `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

func extractResponse[T any](response []byte) (T, error) {
	var t T
	if err := json.Unmarshal(response, &t); err != nil {
		return t, err
	}
	return t, nil
}

// DecodeGraphQL unwraps the data member of a GraphQL response. An errors
// member, a missing data member or an undecodable body is a protocol error.
func DecodeGraphQL[T any](body []byte) (*T, error) {
	res, err := extractResponse[graphQLResponse[T]](body)
	if err != nil {
		return nil, types.NewProtocolError("malformed GraphQL response", err)
	}
	if len(res.Errors) > 0 {
		msgs := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, types.NewProtocolError("GraphQL errors: "+strings.Join(msgs, "; "), nil)
	}
	if res.Data == nil {
		return nil, types.NewProtocolError("GraphQL response has no data", nil)
	}
	return res.Data, nil
}
