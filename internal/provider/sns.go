package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSPublisher is the subset of the SNS client used for SMS.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

var _ SMSSender = (*SNSSender)(nil)

// SNSSender delivers SMS through AWS SNS direct publish.
type SNSSender struct {
	client SNSPublisher
}

func NewSNSSender(ctx context.Context, region string) (*SNSSender, error) {
	if strings.TrimSpace(region) == "" {
		return nil, fmt.Errorf("sns region is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewSNSSenderWithClient(sns.NewFromConfig(awsCfg))
}

func NewSNSSenderWithClient(client SNSPublisher) (*SNSSender, error) {
	if client == nil {
		return nil, fmt.Errorf("sns client is required")
	}
	return &SNSSender{client: client}, nil
}

func (s *SNSSender) SendSMS(ctx context.Context, to string, message string) (*Response, error) {
	// SNS expects E.164 with the leading '+'.
	phone := "+" + strings.TrimPrefix(to, "+")

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
	})
	if err != nil {
		return nil, &GatewayError{Gateway: "sns", Kind: FailureUnreachable, Err: err}
	}

	return &Response{MessageID: aws.ToString(out.MessageId)}, nil
}
