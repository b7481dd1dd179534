package provider

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/shieldops/secrets/internal/config"
	apperrors "github.com/shieldops/secrets/internal/errors"
	syncerDomain "github.com/shieldops/secrets/internal/syncer/domain"
)

// SecretsManagerAPI defines the AWS Secrets Manager operations used by the
// provider. This allows for mocking in tests.
type SecretsManagerAPI interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
}

// AWSProvider mirrors secrets to AWS Secrets Manager.
type AWSProvider struct {
	client SecretsManagerAPI
}

// NewAWSProvider creates an AWS Secrets Manager provider from typed
// configuration. Static credentials and a custom endpoint are optional and
// mainly useful against LocalStack.
func NewAWSProvider(ctx context.Context, cfg config.AWSConfig) (*AWSProvider, error) {
	configOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load AWS config")
	}

	var clientOpts []func(*secretsmanager.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
			o.BaseEndpoint = &endpoint
		})
	}

	return &AWSProvider{client: secretsmanager.NewFromConfig(awsCfg, clientOpts...)}, nil
}

// NewAWSProviderWithClient creates an AWS provider with an injected client,
// used in tests.
func NewAWSProviderWithClient(client SecretsManagerAPI) *AWSProvider {
	return &AWSProvider{client: client}
}

// Name identifies the provider.
func (a *AWSProvider) Name() string {
	return "aws"
}

// Push writes the secret value, creating the remote secret on first push.
// PutSecretValue on an unchanged value creates a new version, which is a
// harmless replay.
func (a *AWSProvider) Push(ctx context.Context, record syncerDomain.Record) error {
	value := string(record.Value)

	_, err := a.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     &record.Name,
		SecretString: &value,
	})
	if err == nil {
		return nil
	}
	if !isAWSNotFound(err) {
		return fmt.Errorf("%w: aws put %q: %w", syncerDomain.ErrSyncFailed, record.Name, err)
	}

	var tags []types.Tag
	for k, v := range record.Tags {
		key, val := k, v
		tags = append(tags, types.Tag{Key: &key, Value: &val})
	}
	_, err = a.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         &record.Name,
		SecretString: &value,
		Tags:         tags,
	})
	if err != nil {
		return fmt.Errorf("%w: aws create %q: %w", syncerDomain.ErrSyncFailed, record.Name, err)
	}
	return nil
}

// Pull retrieves the value currently held by AWS Secrets Manager.
func (a *AWSProvider) Pull(ctx context.Context, name string) ([]byte, error) {
	result, err := a.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &name,
	})
	if err != nil {
		if isAWSNotFound(err) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "secret not found in aws")
		}
		return nil, fmt.Errorf("%w: aws get %q: %w", syncerDomain.ErrSyncFailed, name, err)
	}

	if result.SecretString != nil {
		return []byte(*result.SecretString), nil
	}
	if result.SecretBinary != nil {
		return result.SecretBinary, nil
	}
	return nil, fmt.Errorf("%w: aws secret %q has no value", syncerDomain.ErrSyncFailed, name)
}

// Delete removes the secret without a recovery window.
func (a *AWSProvider) Delete(ctx context.Context, name string) error {
	force := true
	_, err := a.client.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   &name,
		ForceDeleteWithoutRecovery: &force,
	})
	if err != nil {
		if isAWSNotFound(err) {
			return nil
		}
		return fmt.Errorf("%w: aws delete %q: %w", syncerDomain.ErrSyncFailed, name, err)
	}
	return nil
}

// Ping verifies credentials by listing a single secret.
func (a *AWSProvider) Ping(ctx context.Context) error {
	maxResults := int32(1)
	_, err := a.client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{
		MaxResults: &maxResults,
	})
	if err != nil {
		return fmt.Errorf("%w: aws health check: %w", syncerDomain.ErrSyncFailed, err)
	}
	return nil
}

func isAWSNotFound(err error) bool {
	var notFound *types.ResourceNotFoundException
	return errors.As(err, &notFound)
}
