package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Open connects to the record store named by a credentials bundle.
//
// Supported URLs:
//
//	dynamodb://<table>?region=<region>&endpoint=<url>
//	file:///path/to/records.json
//	memory://
//
// For DynamoDB a storeKey of the form "<access key id>:<secret>" selects
// static credentials; any other value falls back to the default AWS chain.
func Open(ctx context.Context, storeURL, storeKey string) (RecordStore, error) {
	u, err := url.Parse(storeURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store url: %w", err)
	}

	switch u.Scheme {
	case "dynamodb":
		return openDynamoDB(ctx, u, storeKey)
	case "file":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return nil, fmt.Errorf("invalid store url: file path is empty")
		}
		return NewFileStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store url scheme %q", u.Scheme)
	}
}

func openDynamoDB(ctx context.Context, u *url.URL, storeKey string) (*DynamoDBStore, error) {
	table := u.Host
	if table == "" {
		return nil, fmt.Errorf("invalid store url: missing DynamoDB table name")
	}

	var opts []func(*config.LoadOptions) error
	if region := u.Query().Get("region"); region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if id, secret, ok := strings.Cut(storeKey, ":"); ok && id != "" && secret != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(id, secret, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*dynamodb.Options)
	if endpoint := u.Query().Get("endpoint"); endpoint != "" {
		clientOpts = append(clientOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	return NewDynamoDBStore(dynamodb.NewFromConfig(cfg, clientOpts...), table), nil
}
