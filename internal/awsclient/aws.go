package awsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsGetter is the subset of the Secrets Manager client used here.
type SecretsGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// LoadAWSConfig initializes and returns an AWS SDK configuration.
func LoadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return cfg, nil
}

// NewSecretsManagerClient initializes the AWS Secrets Manager client.
func NewSecretsManagerClient(cfg aws.Config) *secretsmanager.Client {
	return secretsmanager.NewFromConfig(cfg)
}

// rdsSecret is the JSON layout RDS uses for managed database credentials.
type rdsSecret struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Host     string      `json:"host"`
	Port     json.Number `json:"port"`
	DBName   string      `json:"dbname"`
}

// ResolveDatabaseSource reads a database connection string from a secret. The
// secret is either the connection string itself or an RDS credentials object.
func ResolveDatabaseSource(ctx context.Context, client SecretsGetter, secretName string) (string, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		return "", fmt.Errorf("error retrieving secret '%s': %w", secretName, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret '%s' has no string value", secretName)
	}

	value := *out.SecretString
	var creds rdsSecret
	if err := json.Unmarshal([]byte(value), &creds); err != nil {
		// Not JSON, so the secret holds the connection string as-is
		return value, nil
	}
	if creds.Host == "" || creds.Username == "" {
		return "", fmt.Errorf("secret '%s' is missing host or username", secretName)
	}

	port := "5432"
	if creds.Port != "" {
		if _, err := strconv.Atoi(creds.Port.String()); err != nil {
			return "", fmt.Errorf("secret '%s' has invalid port '%s'", secretName, creds.Port)
		}
		port = creds.Port.String()
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(creds.Username, creds.Password),
		Host:     net.JoinHostPort(creds.Host, port),
		Path:     "/" + creds.DBName,
		RawQuery: "sslmode=require",
	}
	return u.String(), nil
}
