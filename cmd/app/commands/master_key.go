package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	cryptoDomain "github.com/shieldops/secrets/internal/crypto/domain"
	cryptoService "github.com/shieldops/secrets/internal/crypto/service"
)

// RunCreateMasterKey generates a cryptographically secure 32-byte master key
// for envelope encryption and writes the environment configuration to out.
// If keyID is empty, a default ID in the format "master-key-YYYY-MM-DD" is
// generated.
//
// When kmsKeyURI is set, the key material is wrapped through the KMS keeper
// before output; otherwise the key is written as plaintext base64, which is
// only appropriate for local development.
func RunCreateMasterKey(
	ctx context.Context,
	kms cryptoService.KMSService,
	out io.Writer,
	keyID, kmsKeyURI string,
) error {
	if keyID == "" {
		keyID = fmt.Sprintf("master-key-%s", time.Now().Format("2006-01-02"))
	}

	masterKey := make([]byte, 32)
	if _, err := rand.Read(masterKey); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}
	defer cryptoDomain.Zero(masterKey)

	output := masterKey
	if kmsKeyURI != "" {
		keeper, err := kms.OpenKeeper(ctx, kmsKeyURI)
		if err != nil {
			return fmt.Errorf("failed to open KMS keeper: %w", err)
		}
		defer func() {
			if closeErr := keeper.Close(); closeErr != nil {
				fmt.Fprintf(out, "# Warning: failed to close KMS keeper: %v\n", closeErr)
			}
		}()

		ciphertext, err := keeper.Encrypt(ctx, masterKey)
		if err != nil {
			return fmt.Errorf("failed to wrap master key with KMS: %w", err)
		}
		output = ciphertext

		fmt.Fprintln(out, "# Master Key Configuration (KMS mode)")
		fmt.Fprintf(out, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	} else {
		fmt.Fprintln(out, "# Master Key Configuration (plaintext mode, local development only)")
	}

	encodedKey := base64.StdEncoding.EncodeToString(output)

	fmt.Fprintf(out, "MASTER_KEYS=\"%s:%s\"\n", keyID, encodedKey)
	fmt.Fprintf(out, "ACTIVE_MASTER_KEY_ID=\"%s\"\n", keyID)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "# For key rotation, append the new key and switch the active ID:")
	fmt.Fprintf(out, "# MASTER_KEYS=\"%s:%s,new-key:base64-key\"\n", keyID, encodedKey)
	fmt.Fprintln(out, "# ACTIVE_MASTER_KEY_ID=\"new-key\"")

	return nil
}
