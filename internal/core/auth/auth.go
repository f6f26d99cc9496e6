// Package auth provides HMAC-based API key authentication for gRPC services.
//
// Keys are bound to one site. The interceptor authenticates every unary call
// and stores the key's site ID in the request context; handlers read it with
// SiteIDFromContext and scope all storage access by it.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/solatis/gridview/internal/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// siteIDKey is the context key for storing the authenticated site ID.
const siteIDKey = contextKey("site_id")

// Queries defines the database operations needed for authentication.
// Implemented by *db.Queries.
type Queries interface {
	Get(ctx context.Context, name string, dest interface{}, args ...interface{}) error
	Exec(ctx context.Context, name string, args ...interface{}) (sql.Result, error)
}

// Authenticator validates API keys using HMAC-SHA256 signatures.
// Holds in-memory secret map for O(1) lookup and queries for key verification.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
	logger  *slog.Logger
	now     func() time.Time
}

// NewAuthenticator creates an authenticator with HMAC secrets and query interface.
func NewAuthenticator(secrets map[string][]byte, queries Queries, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		secrets: secrets,
		queries: queries,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate validates API key and returns its site ID on success.
// Returns specific error for each failure mode.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (types.SiteID, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	var row struct {
		APIKeyID   string       `db:"api_key_id"`
		SiteID     string       `db:"site_id"`
		RevokedAt  sql.NullTime `db:"revoked_at"`
		LastUsedAt sql.NullTime `db:"last_used_at"`
	}

	// key_hash is unique, so at most one row matches
	err = a.queries.Get(ctx, "get-api-key-by-hash", &row, KeyHash(secret, apiKey))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if row.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	// 1-minute throttle on last_used_at keeps active clients from writing on every call
	if shouldUpdateLastUsed(row.LastUsedAt, a.now()) {
		if _, err := a.queries.Exec(ctx, "update-last-used", a.now(), row.APIKeyID); err != nil {
			a.logger.Warn("failed to update api key last_used_at", "api_key_id", row.APIKeyID, "error", err)
		}
	}

	return types.SiteID(row.SiteID), nil
}

func shouldUpdateLastUsed(lastUsed sql.NullTime, now time.Time) bool {
	if !lastUsed.Valid {
		return true
	}
	return now.Sub(lastUsed.Time) > time.Minute
}

// UnaryInterceptor returns gRPC interceptor that authenticates requests.
// Health checks pass through unauthenticated.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if info.FullMethod == "/grpc.health.v1.Health/Check" {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		apiKeys := md.Get("x-api-key")
		if len(apiKeys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		siteID, err := a.Authenticate(ctx, apiKeys[0])
		if err != nil {
			a.logger.Debug("authentication failed", "method", info.FullMethod, "error", err)
			switch {
			case errors.Is(err, ErrKeyRevoked):
				return nil, status.Error(codes.PermissionDenied, err.Error())
			case errors.Is(err, ErrDatabase):
				return nil, status.Error(codes.Unavailable, err.Error())
			default:
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
		}

		return handler(WithSiteID(ctx, siteID), req)
	}
}

// WithSiteID returns ctx carrying the authenticated site ID.
func WithSiteID(ctx context.Context, site types.SiteID) context.Context {
	return context.WithValue(ctx, siteIDKey, site)
}

// SiteIDFromContext extracts the site ID from context.
// Returns empty string if not found.
func SiteIDFromContext(ctx context.Context) types.SiteID {
	if site, ok := ctx.Value(siteIDKey).(types.SiteID); ok {
		return site
	}
	return ""
}
