package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultArkeselURL     = "https://sms.arkesel.com/api/v2/sms/send"
	DefaultSenderID       = "Awo)Pa"
	defaultArkeselTimeout = 10 * time.Second
	arkeselSuccessStatus  = "success"
)

type arkeselRequest struct {
	Sender     string   `json:"sender"`
	Message    string   `json:"message"`
	Recipients []string `json:"recipients"`
}

type arkeselResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

var _ SMSSender = (*ArkeselSender)(nil)

// ArkeselSender delivers SMS through the Arkesel v2 HTTP API.
type ArkeselSender struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	senderID string
}

func NewArkeselSender(endpoint, apiKey, senderID string) (*ArkeselSender, error) {
	client := resty.New()
	client.SetTimeout(defaultArkeselTimeout)
	client.SetRetryCount(0)

	return NewArkeselSenderWithClient(endpoint, apiKey, senderID, client)
}

func NewArkeselSenderWithClient(endpoint, apiKey, senderID string, client *resty.Client) (*ArkeselSender, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		trimmedEndpoint = DefaultArkeselURL
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid sms endpoint: %w", err)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("sms api key is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if strings.TrimSpace(senderID) == "" {
		senderID = DefaultSenderID
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultArkeselTimeout)
	}
	client.SetRetryCount(0)

	return &ArkeselSender{
		client:   client,
		endpoint: trimmedEndpoint,
		apiKey:   apiKey,
		senderID: senderID,
	}, nil
}

// SendSMS succeeds only on HTTP 200 with a JSON body whose status is exactly "success".
func (s *ArkeselSender) SendSMS(ctx context.Context, to string, message string) (*Response, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("sms sender is not initialized")
	}
	if strings.TrimSpace(to) == "" {
		return nil, &GatewayError{Gateway: "arkesel", Kind: FailureBadRecipient, Detail: "recipient is required"}
	}

	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("api-key", s.apiKey).
		SetBody(arkeselRequest{
			Sender:     s.senderID,
			Message:    message,
			Recipients: []string{to},
		}).
		Post(s.endpoint)
	if err != nil {
		return nil, &GatewayError{Gateway: "arkesel", Kind: FailureUnreachable, Err: err}
	}
	if response == nil {
		return nil, &GatewayError{Gateway: "arkesel", Kind: FailureBadReply, Detail: "no reply"}
	}

	statusCode := response.StatusCode()
	body := strings.TrimSpace(response.String())

	if statusCode != http.StatusOK {
		return nil, &GatewayError{
			Gateway:    "arkesel",
			Kind:       kindForStatus(statusCode),
			HTTPStatus: statusCode,
			Detail:     truncateReply(body),
		}
	}

	var parsed arkeselResponse
	if err := json.Unmarshal(response.Body(), &parsed); err != nil {
		return nil, &GatewayError{
			Gateway:    "arkesel",
			Kind:       FailureBadReply,
			HTTPStatus: statusCode,
			Detail:     "reply is not json",
			Err:        err,
		}
	}
	if parsed.Status != arkeselSuccessStatus {
		return nil, &GatewayError{
			Gateway:    "arkesel",
			Kind:       FailureRefused,
			HTTPStatus: statusCode,
			Detail:     fmt.Sprintf("status %q: %s", parsed.Status, parsed.Message),
		}
	}

	return &Response{
		StatusCode: statusCode,
		Body:       body,
		MessageID:  response.Header().Get("X-Request-Id"),
	}, nil
}

const maxReplyDetail = 256

func truncateReply(body string) string {
	if len(body) <= maxReplyDetail {
		return body
	}
	return body[:maxReplyDetail] + "..."
}
