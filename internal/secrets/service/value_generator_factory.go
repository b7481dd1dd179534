package service

import (
	secretsDomain "github.com/shieldops/secrets/internal/secrets/domain"
)

// NewValueGenerator creates a value generator appropriate for the secret type.
func NewValueGenerator(secretType secretsDomain.SecretType) (ValueGenerator, error) {
	switch secretType {
	case secretsDomain.TypePassword, secretsDomain.TypeDatabaseCredentials:
		return NewPasswordGenerator(), nil
	case secretsDomain.TypeAPIKey, secretsDomain.TypeJWTToken,
		secretsDomain.TypeExternalServiceToken, secretsDomain.TypeConfigSecret,
		secretsDomain.TypeCustom:
		return NewTokenGenerator(), nil
	case secretsDomain.TypeEncryptionKey:
		return NewEncryptionKeyGenerator(), nil
	case secretsDomain.TypeSSHKey:
		return NewSSHKeyGenerator(), nil
	case secretsDomain.TypeCertificate:
		return NewCertificateGenerator(), nil
	default:
		return nil, secretsDomain.ErrUnknownSecretType
	}
}
