package provider

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"

	"github.com/shieldops/secrets/internal/config"
	apperrors "github.com/shieldops/secrets/internal/errors"
	syncerDomain "github.com/shieldops/secrets/internal/syncer/domain"
)

// VaultKV is the subset of the Vault KVv2 client used by the provider.
// *vault.KVv2 implements this interface; tests substitute a fake.
type VaultKV interface {
	Put(ctx context.Context, secretPath string, data map[string]interface{}, opts ...vault.KVOption) (*vault.KVSecret, error)
	Get(ctx context.Context, secretPath string) (*vault.KVSecret, error)
	DeleteMetadata(ctx context.Context, secretPath string) error
}

// VaultHealthChecker is the subset of the Vault system API used for pings.
type VaultHealthChecker interface {
	HealthWithContext(ctx context.Context) (*vault.HealthResponse, error)
}

// VaultProvider mirrors secrets to a HashiCorp Vault KVv2 engine.
type VaultProvider struct {
	kv     VaultKV
	health VaultHealthChecker
}

// NewVaultProvider creates a Vault provider from typed configuration.
func NewVaultProvider(cfg config.VaultConfig) (*VaultProvider, error) {
	clientConfig := vault.DefaultConfig()
	clientConfig.Address = cfg.Address

	client, err := vault.NewClient(clientConfig)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create vault client")
	}
	client.SetToken(cfg.Token)

	return &VaultProvider{
		kv:     client.KVv2(cfg.MountPath),
		health: client.Sys(),
	}, nil
}

// NewVaultProviderWithClient creates a Vault provider with injected client
// parts, used in tests.
func NewVaultProviderWithClient(kv VaultKV, health VaultHealthChecker) *VaultProvider {
	return &VaultProvider{kv: kv, health: health}
}

// Name identifies the provider.
func (v *VaultProvider) Name() string {
	return "vault"
}

// Push writes the secret value under its name in the KV engine. The version is
// stored alongside so replays of the same version are harmless overwrites.
func (v *VaultProvider) Push(ctx context.Context, record syncerDomain.Record) error {
	data := map[string]interface{}{
		"value":   string(record.Value),
		"version": record.Version,
		"type":    record.Type,
	}
	for k, val := range record.Tags {
		data["tag_"+k] = val
	}

	if _, err := v.kv.Put(ctx, record.Name, data); err != nil {
		return fmt.Errorf("%w: vault put %q: %w", syncerDomain.ErrSyncFailed, record.Name, err)
	}
	return nil
}

// Pull retrieves the value currently held by Vault.
func (v *VaultProvider) Pull(ctx context.Context, name string) ([]byte, error) {
	secret, err := v.kv.Get(ctx, name)
	if err != nil {
		if isVaultNotFound(err) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "secret not found in vault")
		}
		return nil, fmt.Errorf("%w: vault get %q: %w", syncerDomain.ErrSyncFailed, name, err)
	}

	value, ok := secret.Data["value"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: vault secret %q has no value field", syncerDomain.ErrSyncFailed, name)
	}
	return []byte(value), nil
}

// Delete removes the secret and all its versions from Vault.
func (v *VaultProvider) Delete(ctx context.Context, name string) error {
	if err := v.kv.DeleteMetadata(ctx, name); err != nil {
		if isVaultNotFound(err) {
			return nil
		}
		return fmt.Errorf("%w: vault delete %q: %w", syncerDomain.ErrSyncFailed, name, err)
	}
	return nil
}

// Ping verifies the Vault server is reachable.
func (v *VaultProvider) Ping(ctx context.Context) error {
	if _, err := v.health.HealthWithContext(ctx); err != nil {
		return fmt.Errorf("%w: vault health check: %w", syncerDomain.ErrSyncFailed, err)
	}
	return nil
}

func isVaultNotFound(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "secret not found") ||
		strings.Contains(err.Error(), "404")
}
