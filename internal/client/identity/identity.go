// Package identity bootstraps the per-install user id that keys the remote
// document.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/soullink/internal/client/repositories/kv"
	"github.com/dmitrijs2005/soullink/internal/common"
	"github.com/google/uuid"
)

var (
	nowFn  = time.Now
	randFn = func() string {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	}
)

// Ensure returns the stored user id, generating and storing
// "user_<unixms>_<random>" on first use. A non-empty override replaces the
// stored id.
func Ensure(ctx context.Context, repo kv.Repository, override string) (string, error) {
	if override != "" {
		if err := repo.Set(ctx, common.UserIDKey, []byte(override)); err != nil {
			return "", fmt.Errorf("store user id: %w", err)
		}
		return override, nil
	}

	b, err := repo.Get(ctx, common.UserIDKey)
	if err != nil {
		return "", fmt.Errorf("load user id: %w", err)
	}
	if id := strings.TrimSpace(string(b)); id != "" {
		return id, nil
	}

	id := Generate()
	if err := repo.Set(ctx, common.UserIDKey, []byte(id)); err != nil {
		return "", fmt.Errorf("store user id: %w", err)
	}
	return id, nil
}

func Generate() string {
	return fmt.Sprintf("user_%d_%s", nowFn().UnixMilli(), randFn())
}
