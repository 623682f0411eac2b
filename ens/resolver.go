package ens

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ENSWatch/domain"
)

const millisecondsPerSecond = 1000

// maxExpirySeconds is the largest expiry whose millisecond value fits in int64.
var maxExpirySeconds = big.NewInt(math.MaxInt64 / millisecondsPerSecond)

var (
	ErrNotRegistered = errors.New("name has no registered owner")
	ErrNoExpiry      = errors.New("registrar returned no expiry")
)

// ResolutionError is returned when owner or expiry of a name cannot be read.
type ResolutionError struct {
	Label string
	Op    string
	Err   error
}

func (e *ResolutionError) Error() string {
	name := "token"
	if e.Label != "" {
		name = e.Label + tld
	}
	return fmt.Sprintf("resolve %s: %s: %v", name, e.Op, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

var resolutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "enswatch",
		Name:      "resolutions_total",
		Help:      "registrar lookups by result",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(resolutions)
}

// Resolver reads owner and expiry of .eth names from an Oracle.
type Resolver struct {
	oracle Oracle
	logger *zap.Logger
}

func NewResolver(oracle Oracle, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{oracle: oracle, logger: logger.Named("resolver")}
}

// ResolveLabel resolves an already normalised label.
func (r *Resolver) ResolveLabel(ctx context.Context, label string) (domain.Record, error) {
	rec, err := r.Resolve(ctx, IdentifierOf(label))
	if err != nil {
		var rerr *ResolutionError
		if errors.As(err, &rerr) {
			rerr.Label = label
		}
		r.logger.Warn("resolution failed", zap.String("label", label), zap.Error(err))
		return domain.Record{}, err
	}
	r.logger.Debug("resolved",
		zap.String("label", label),
		zap.String("owner", rec.Owner),
		zap.Int64("expirationDate", rec.ExpirationDate))
	return rec, nil
}

// Resolve reads owner and expiry of id. Both reads must succeed; the expiry
// is converted from registrar seconds to milliseconds.
func (r *Resolver) Resolve(ctx context.Context, id *big.Int) (domain.Record, error) {
	owner, err := r.oracle.OwnerOf(ctx, id)
	if err != nil {
		resolutions.WithLabelValues("error").Inc()
		return domain.Record{}, &ResolutionError{Op: "ownerOf", Err: err}
	}
	if owner == (common.Address{}) {
		resolutions.WithLabelValues("unregistered").Inc()
		return domain.Record{}, &ResolutionError{Op: "ownerOf", Err: ErrNotRegistered}
	}

	expires, err := r.oracle.NameExpires(ctx, id)
	if err != nil {
		resolutions.WithLabelValues("error").Inc()
		return domain.Record{}, &ResolutionError{Op: "nameExpires", Err: err}
	}
	if expires == nil || expires.Sign() <= 0 || expires.Cmp(maxExpirySeconds) > 0 {
		resolutions.WithLabelValues("error").Inc()
		return domain.Record{}, &ResolutionError{Op: "nameExpires", Err: ErrNoExpiry}
	}

	resolutions.WithLabelValues("ok").Inc()
	return domain.Record{
		Owner:          owner.Hex(),
		ExpirationDate: expires.Int64() * millisecondsPerSecond,
	}, nil
}
