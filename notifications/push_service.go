package notifications

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const defaultEndpoint = "https://fcm.googleapis.com/fcm/send"

var ErrUnavailable = errors.New("notification channel unavailable")

// Dispatcher is the best-effort push channel. Callers must treat every error
// from it as non-fatal: a message is sent once it is persisted, whatever the
// notification outcome.
type Dispatcher interface {
	Send(deviceToken, title, body string) (string, error)
	SendMulticast(deviceTokens []string, title, body string) (success, failure int)
}

// FCMService delivers push notifications through Firebase Cloud Messaging.
type FCMService struct {
	ServerKey string
	Endpoint  string
	client    *http.Client
}

func NewFCMService(serverKey, endpoint string) *FCMService {
	if serverKey == "" {
		log.Println("⚠️ Push service not configured. Missing FCM server key; notifications will fail open.")
	}
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &FCMService{
		ServerKey: serverKey,
		Endpoint:  endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type fcmPayload struct {
	To              string            `json:"to,omitempty"`
	RegistrationIDs []string          `json:"registration_ids,omitempty"`
	Notification    map[string]string `json:"notification"`
}

type fcmResponse struct {
	MulticastID int64 `json:"multicast_id"`
	Success     int   `json:"success"`
	Failure     int   `json:"failure"`
	Results     []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

// Send pushes a single notification and returns the FCM message id as the
// dispatch receipt.
func (s *FCMService) Send(deviceToken, title, body string) (string, error) {
	resp, err := s.post(fcmPayload{
		To:           deviceToken,
		Notification: map[string]string{"title": title, "body": body},
	})
	if err != nil {
		return "", err
	}
	if resp.Success == 0 {
		reason := "unknown"
		if len(resp.Results) > 0 && resp.Results[0].Error != "" {
			reason = resp.Results[0].Error
		}
		return "", fmt.Errorf("%w: %s", ErrUnavailable, reason)
	}

	receipt := fmt.Sprintf("%d", resp.MulticastID)
	if len(resp.Results) > 0 && resp.Results[0].MessageID != "" {
		receipt = resp.Results[0].MessageID
	}
	log.Printf("✅ Push notification sent, receipt: %s", receipt)
	return receipt, nil
}

// SendMulticast pushes to several device tokens in one call. A token-level
// failure never fails the whole call; the counts tell the caller how it went.
func (s *FCMService) SendMulticast(deviceTokens []string, title, body string) (int, int) {
	if len(deviceTokens) == 0 {
		return 0, 0
	}
	resp, err := s.post(fcmPayload{
		RegistrationIDs: deviceTokens,
		Notification:    map[string]string{"title": title, "body": body},
	})
	if err != nil {
		log.Printf("🔥 Multicast push failed entirely: %v", err)
		return 0, len(deviceTokens)
	}
	log.Printf("%d notifications sent successfully, %d failed", resp.Success, resp.Failure)
	return resp.Success, resp.Failure
}

func (s *FCMService) post(payload fcmPayload) (*fcmResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %v", err)
	}

	req, err := http.NewRequest("POST", s.Endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "key="+s.ServerKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("FCM API error: Status %d, Body: %s", resp.StatusCode, string(respBody))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed fcmResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}
	return &parsed, nil
}
