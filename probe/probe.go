package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/syncwatch/syncwatch/types"
)

// Prober queries one source of a deployment. Probe never returns an error:
// every failure to reach or understand a source is folded into the returned
// statuses.
type Prober interface {
	Probe(ctx context.Context, d types.Deployment, src types.SourceDescriptor) Result
}

// Result is what one probe call yields. A direct probe yields exactly one
// status. A consolidated probe yields one status per reported source, and
// sets Err when the call itself failed (no statuses in that case).
type Result struct {
	Statuses []types.SourceStatus
	Err      error
}

func single(status types.SourceStatus) Result {
	return Result{Statuses: []types.SourceStatus{status}}
}

// Dispatcher routes each source descriptor to the prober of its kind.
type Dispatcher struct {
	probers map[types.ProbeKind]Prober
}

func NewDispatcher(direct, consolidated Prober) *Dispatcher {
	probers := make(map[types.ProbeKind]Prober, 2)
	if direct != nil {
		probers[types.ProbeDirect] = direct
	}
	if consolidated != nil {
		probers[types.ProbeConsolidated] = consolidated
	}
	return &Dispatcher{probers: probers}
}

func (d *Dispatcher) Probe(ctx context.Context, dep types.Deployment, src types.SourceDescriptor) Result {
	p, ok := d.probers[src.Kind]
	if !ok {
		err := types.NewProtocolError(fmt.Sprintf("no prober for source kind %q", src.Kind), nil)
		return single(types.NewFailureStatus(src, err))
	}
	return p.Probe(ctx, dep, src)
}

// StatusURL turns an indexer URL as advertised on the network into its
// status endpoint: https is assumed when no scheme is given and a trailing
// slash is dropped.
func StatusURL(raw string) string {
	u := strings.TrimSpace(raw)
	if !strings.HasPrefix(u, "http") {
		u = "https://" + u
	}
	return strings.TrimRight(u, "/") + "/status"
}

// IndexerURL is StatusURL without the status path.
func IndexerURL(raw string) string {
	return strings.TrimSuffix(StatusURL(raw), "/status")
}
