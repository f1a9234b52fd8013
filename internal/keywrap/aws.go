package keywrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// AWSKMSWrapper implements Wrapper using AWS KMS
type AWSKMSWrapper struct {
	keyID  string
	region string
	client *kms.Client
}

// NewAWSKMSWrapper creates a new AWS KMS wrapper
func NewAWSKMSWrapper(keyID, region string) (*AWSKMSWrapper, error) {
	if keyID == "" {
		return nil, fmt.Errorf("AWS KMS key ID is required")
	}
	if region == "" {
		return nil, fmt.Errorf("AWS region is required")
	}

	// Uses default credential chain: env vars, shared config, IAM role, etc.
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSKMSWrapper{
		keyID:  keyID,
		region: region,
		client: kms.NewFromConfig(cfg),
	}, nil
}

// Wrap encrypts key material using AWS KMS
func (w *AWSKMSWrapper) Wrap(ctx context.Context, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("key material is empty")
	}

	output, err := w.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(w.keyID),
		Plaintext: key,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("AWS KMS encrypt abandoned: %w", ctxErr)
		}
		return nil, fmt.Errorf("AWS KMS encrypt failed: %w", err)
	}
	return output.CiphertextBlob, nil
}

// Unwrap decrypts key material using AWS KMS. A signing deadline expiring
// mid-call is reported as the context error so the caller can distinguish
// non-response from a KMS refusal.
func (w *AWSKMSWrapper) Unwrap(ctx context.Context, wrapped []byte) ([]byte, error) {
	if len(wrapped) == 0 {
		return nil, fmt.Errorf("wrapped key blob is empty")
	}

	output, err := w.client.Decrypt(ctx, &kms.DecryptInput{
		KeyId:          aws.String(w.keyID),
		CiphertextBlob: wrapped,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("AWS KMS decrypt abandoned: %w", ctxErr)
		}
		return nil, fmt.Errorf("AWS KMS decrypt failed: %w", err)
	}
	if len(output.Plaintext) == 0 {
		return nil, fmt.Errorf("AWS KMS decrypt returned no key material")
	}
	return output.Plaintext, nil
}

// Provider returns the backend name
func (w *AWSKMSWrapper) Provider() string {
	return string(ProviderAWSKMS)
}
