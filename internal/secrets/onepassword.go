// Package secrets resolves credentials the bot should not keep in its config file.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/1Password/connect-sdk-go/connect"
	"github.com/1Password/connect-sdk-go/onepassword"

	"github.com/pilot-net/outage-counter/internal/config"
)

var (
	// ErrItemNotFound is returned when no item with the configured title exists.
	ErrItemNotFound = errors.New("1Password item not found")

	// ErrFieldNotFound is returned when the item has no matching field.
	ErrFieldNotFound = errors.New("1Password field not found")
)

// itemReader is the part of connect.Client used here.
type itemReader interface {
	GetItemsByTitle(title string, vaultQuery string) ([]onepassword.Item, error)
	GetItem(itemQuery string, vaultQuery string) (*onepassword.Item, error)
}

// OnePasswordResolver reads secret fields from 1Password through a Connect server.
type OnePasswordResolver struct {
	client  itemReader
	vaultID string
	logger  *slog.Logger
}

// NewOnePasswordResolver creates a resolver for the configured Connect server.
func NewOnePasswordResolver(cfg config.OnePasswordConfig, logger *slog.Logger) (*OnePasswordResolver, error) {
	if cfg.Host == "" || cfg.Token == "" || cfg.VaultID == "" {
		return nil, fmt.Errorf("1Password configuration incomplete: host, token, and vault_id are required")
	}

	client := connect.NewClientWithUserAgent(cfg.Host, cfg.Token, "outagebot")
	return newResolver(client, cfg.VaultID, logger), nil
}

func newResolver(client itemReader, vaultID string, logger *slog.Logger) *OnePasswordResolver {
	return &OnePasswordResolver{
		client:  client,
		vaultID: vaultID,
		logger:  logger.With("component", "secrets"),
	}
}

// Field returns the value of the field labelled (or with ID) field on the
// item titled title.
func (r *OnePasswordResolver) Field(ctx context.Context, title, field string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	items, err := r.client.GetItemsByTitle(title, r.vaultID)
	if err != nil {
		if isNotFoundError(err) {
			return "", fmt.Errorf("%w: %s", ErrItemNotFound, title)
		}
		return "", fmt.Errorf("listing items: %w", err)
	}
	if len(items) == 0 {
		return "", fmt.Errorf("%w: %s", ErrItemNotFound, title)
	}

	// The list endpoint omits field values
	item, err := r.client.GetItem(items[0].ID, r.vaultID)
	if err != nil {
		return "", fmt.Errorf("getting item: %w", err)
	}

	for _, f := range item.Fields {
		if f == nil {
			continue
		}
		if strings.EqualFold(f.Label, field) || f.ID == field {
			r.logger.Debug("resolved secret from 1Password", "item", title, "field", field)
			return f.Value, nil
		}
	}
	return "", fmt.Errorf("%w: %s on item %s", ErrFieldNotFound, field, title)
}

// ResolveStoreURL overwrites cfg.Store.URL with the configured 1Password
// field. It does nothing when 1Password is not configured.
func ResolveStoreURL(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	op := cfg.Secrets.OnePassword
	if !op.Enabled() {
		return nil
	}

	resolver, err := NewOnePasswordResolver(op, logger)
	if err != nil {
		return err
	}
	return resolveStoreURL(ctx, resolver, cfg)
}

func resolveStoreURL(ctx context.Context, r *OnePasswordResolver, cfg *config.Config) error {
	op := cfg.Secrets.OnePassword
	url, err := r.Field(ctx, op.Item, op.Field)
	if err != nil {
		return fmt.Errorf("resolving store url: %w", err)
	}
	if url == "" {
		return fmt.Errorf("resolving store url: field %s on item %s is empty", op.Field, op.Item)
	}
	cfg.Store.URL = url
	r.logger.Info("store url loaded from 1Password", "item", op.Item)
	return nil
}

// isNotFoundError checks if an error is a "not found" error from 1Password.
// The SDK does not export a sentinel for it.
func isNotFoundError(err error) bool {
	var opErr *onepassword.Error
	if errors.As(err, &opErr) && opErr.StatusCode == 404 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no items")
}
