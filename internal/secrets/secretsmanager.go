package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
)

// SecretsManagerAPI is the subset of the Secrets Manager client in use
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
}

// SecretsManagerSource keeps the field key in AWS Secrets Manager
type SecretsManagerSource struct {
	client     SecretsManagerAPI
	secretName string
}

// NewSecretsManagerSource wraps an existing client
func NewSecretsManagerSource(client SecretsManagerAPI, secretName string) *SecretsManagerSource {
	return &SecretsManagerSource{client: client, secretName: secretName}
}

// NewSecretsManagerSourceFromConfig loads the default AWS config and
// creates a Secrets Manager client
func NewSecretsManagerSourceFromConfig(ctx context.Context, secretName, region string) (*SecretsManagerSource, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSecretsManagerSource(secretsmanager.NewFromConfig(cfg), secretName), nil
}

// SecretName returns the secret the key is stored under
func (s *SecretsManagerSource) SecretName() string {
	return s.secretName
}

// FieldKey fetches the current secret value
func (s *SecretsManagerSource) FieldKey(ctx context.Context) (string, error) {
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretName),
	})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%w: secret %s does not exist", ErrNoFieldKey, s.secretName)
		}
		return "", fmt.Errorf("failed to get secret: %w", err)
	}

	key := aws.ToString(result.SecretString)
	if key == "" {
		return "", fmt.Errorf("%w: secret %s is empty", ErrNoFieldKey, s.secretName)
	}
	return key, nil
}

// PutFieldKey stores key as the secret value, creating the secret if needed
func (s *SecretsManagerSource) PutFieldKey(ctx context.Context, key string) error {
	_, err := s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(s.secretName),
		SecretString: aws.String(key),
	})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("failed to update secret: %w", err)
	}

	_, err = s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(s.secretName),
		SecretString: aws.String(key),
		Description:  aws.String("jotvault field encryption key"),
	})
	if err != nil {
		return fmt.Errorf("failed to create secret: %w", err)
	}
	return nil
}

// IsAvailable checks if Secrets Manager is reachable. A missing secret
// still counts as available.
func (s *SecretsManagerSource) IsAvailable(ctx context.Context) bool {
	_, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretName),
	})
	return err == nil || isNotFound(err)
}

func isNotFound(err error) bool {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException"
}
