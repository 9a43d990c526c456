package dynamostore

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// ClientConfig carries the caller-supplied AWS wiring: credentials, region,
// table, and an optional endpoint override for local DynamoDB.
type ClientConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Table           string
	CreatedAtIndex  string
}

// NewFromClientConfig builds a DynamoDB-backed log store from static
// credentials, the way in-process callers hand over AWS configuration.
func NewFromClientConfig(cfg ClientConfig) (*Store, error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("dynamostore: table name is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	awsConfig := aws.Config{Region: region}
	if cfg.AccessKeyID != "" {
		provider := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			cfg.SessionToken,
		)
		awsConfig.Credentials = aws.NewCredentialsCache(provider)
	}

	client := dynamodb.NewFromConfig(awsConfig, func(o *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	opts := []StoreOption{}
	if cfg.CreatedAtIndex != "" {
		opts = append(opts, WithCreatedAtIndex(cfg.CreatedAtIndex))
	}
	return New(client, cfg.Table, opts...)
}
