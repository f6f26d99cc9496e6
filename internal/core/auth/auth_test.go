package auth

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/solatis/gridview/internal/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const testSecretID = "0123456789abcdef0123456789abcdef"

var testSecret = []byte("testsecret1234567890abcdefghijklmnop")

// keyRow mirrors the columns selected by get-api-key-by-hash.
type keyRow struct {
	id        string
	site      string
	revokedAt sql.NullTime
	lastUsed  sql.NullTime
}

// fakeQueries serves get-api-key-by-hash from memory and records execs.
type fakeQueries struct {
	rows  map[string]keyRow
	err   error
	execs []string
}

func (f *fakeQueries) Get(_ context.Context, name string, dest interface{}, args ...interface{}) error {
	if f.err != nil {
		return f.err
	}
	row, ok := f.rows[args[0].(string)]
	if !ok {
		return sql.ErrNoRows
	}
	v := reflect.ValueOf(dest).Elem()
	v.FieldByName("APIKeyID").SetString(row.id)
	v.FieldByName("SiteID").SetString(row.site)
	v.FieldByName("RevokedAt").Set(reflect.ValueOf(row.revokedAt))
	v.FieldByName("LastUsedAt").Set(reflect.ValueOf(row.lastUsed))
	return nil
}

func (f *fakeQueries) Exec(_ context.Context, name string, args ...interface{}) (sql.Result, error) {
	f.execs = append(f.execs, name)
	return nil, nil
}

func newTestAuthenticator(t *testing.T) (*Authenticator, *fakeQueries, string) {
	t.Helper()
	key, hash, err := GenerateAPIKey(testSecretID, testSecret)
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}
	q := &fakeQueries{rows: map[string]keyRow{hash: {id: "k1", site: "contoso"}}}
	return NewAuthenticator(map[string][]byte{testSecretID: testSecret}, q, nil), q, key
}

func TestParseAPIKey(t *testing.T) {
	random := strings.Repeat("ab", 32)
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "valid", key: FormatAPIKey(testSecretID, random)},
		{name: "old prefix", key: "tk-v1-" + testSecretID + "-" + random, wantErr: true},
		{name: "wrong version", key: "gv-v2-" + testSecretID + "-" + random, wantErr: true},
		{name: "short random", key: FormatAPIKey(testSecretID, "abcd"), wantErr: true},
		{name: "uppercase hex", key: FormatAPIKey(strings.ToUpper(testSecretID), random), wantErr: true},
		{name: "empty", key: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secretID, randomData, err := ParseAPIKey(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKeyFormat) {
					t.Errorf("ParseAPIKey() error = %v, want ErrInvalidKeyFormat", err)
				}
				return
			}
			if err != nil || secretID != testSecretID || randomData != random {
				t.Errorf("ParseAPIKey() = %q, %q, %v", secretID, randomData, err)
			}
		})
	}
}

func TestGenerateAPIKey(t *testing.T) {
	key1, hash1, err := GenerateAPIKey(testSecretID, testSecret)
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}
	key2, _, _ := GenerateAPIKey(testSecretID, testSecret)
	if key1 == key2 {
		t.Error("two generated keys are equal")
	}
	if len(key1) != 103 {
		t.Errorf("key length = %d, want 103", len(key1))
	}
	if hash1 != KeyHash(testSecret, key1) {
		t.Error("returned hash does not match KeyHash")
	}
	if _, _, err := GenerateAPIKey("not-hex", testSecret); err == nil {
		t.Error("expected error for malformed secret id")
	}
}

func TestVerifyHMAC(t *testing.T) {
	a := ComputeHMAC(testSecret, "key")
	if !VerifyHMAC(a, ComputeHMAC(testSecret, "key")) {
		t.Error("equal hashes did not verify")
	}
	if VerifyHMAC(a, ComputeHMAC([]byte("other secret"), "key")) {
		t.Error("hash under another secret verified")
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid key returns site", func(t *testing.T) {
		a, q, key := newTestAuthenticator(t)
		site, err := a.Authenticate(ctx, key)
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if site != types.SiteID("contoso") {
			t.Errorf("site = %q, want contoso", site)
		}
		if len(q.execs) != 1 || q.execs[0] != "update-last-used" {
			t.Errorf("execs = %v, want one update-last-used", q.execs)
		}
	})

	t.Run("recent use is not rewritten", func(t *testing.T) {
		a, q, key := newTestAuthenticator(t)
		for hash, row := range q.rows {
			row.lastUsed = sql.NullTime{Time: time.Now().UTC(), Valid: true}
			q.rows[hash] = row
		}
		if _, err := a.Authenticate(ctx, key); err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if len(q.execs) != 0 {
			t.Errorf("execs = %v, want none within throttle window", q.execs)
		}
	})

	t.Run("revoked", func(t *testing.T) {
		a, q, key := newTestAuthenticator(t)
		for hash, row := range q.rows {
			row.revokedAt = sql.NullTime{Time: time.Now(), Valid: true}
			q.rows[hash] = row
		}
		if _, err := a.Authenticate(ctx, key); !errors.Is(err, ErrKeyRevoked) {
			t.Errorf("error = %v, want ErrKeyRevoked", err)
		}
	})

	t.Run("unknown secret id", func(t *testing.T) {
		a, _, _ := newTestAuthenticator(t)
		key, _, _ := GenerateAPIKey("fedcba9876543210fedcba9876543210", testSecret)
		if _, err := a.Authenticate(ctx, key); !errors.Is(err, ErrUnknownKey) {
			t.Errorf("error = %v, want ErrUnknownKey", err)
		}
	})

	t.Run("key not stored", func(t *testing.T) {
		a, _, _ := newTestAuthenticator(t)
		key, _, _ := GenerateAPIKey(testSecretID, testSecret)
		if _, err := a.Authenticate(ctx, key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("error = %v, want ErrInvalidKey", err)
		}
	})

	t.Run("database failure", func(t *testing.T) {
		a, q, key := newTestAuthenticator(t)
		q.err = errors.New("connection refused")
		if _, err := a.Authenticate(ctx, key); !errors.Is(err, ErrDatabase) {
			t.Errorf("error = %v, want ErrDatabase", err)
		}
	})
}

func TestUnaryInterceptor(t *testing.T) {
	a, q, key := newTestAuthenticator(t)
	interceptor := a.UnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/gridview.v1.ViewService/ResolveView"}

	var gotSite types.SiteID
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		gotSite = SiteIDFromContext(ctx)
		return "ok", nil
	}

	call := func(md metadata.MD) error {
		ctx := context.Background()
		if md != nil {
			ctx = metadata.NewIncomingContext(ctx, md)
		}
		_, err := interceptor(ctx, nil, info, handler)
		return err
	}

	if err := call(metadata.Pairs("x-api-key", key)); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
	if gotSite != "contoso" {
		t.Errorf("site in context = %q, want contoso", gotSite)
	}

	tests := []struct {
		name string
		md   metadata.MD
		prep func()
		want codes.Code
	}{
		{name: "no metadata", want: codes.Unauthenticated},
		{name: "no key", md: metadata.Pairs("other", "x"), want: codes.Unauthenticated},
		{name: "malformed key", md: metadata.Pairs("x-api-key", "nope"), want: codes.Unauthenticated},
		{name: "database down", md: metadata.Pairs("x-api-key", key), prep: func() { q.err = errors.New("down") }, want: codes.Unavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prep != nil {
				tt.prep()
			}
			if got := status.Code(call(tt.md)); got != tt.want {
				t.Errorf("code = %v, want %v", got, tt.want)
			}
		})
	}

	health := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	if _, err := interceptor(context.Background(), nil, health, handler); err != nil {
		t.Errorf("health check required auth: %v", err)
	}
}

func TestSiteIDFromContext_Empty(t *testing.T) {
	if got := SiteIDFromContext(context.Background()); got != "" {
		t.Errorf("SiteIDFromContext() = %q, want empty", got)
	}
}
