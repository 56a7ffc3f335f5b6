package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// PushMessage is a device notification: a visible title and body plus a data
// payload the app uses to navigate to the comment.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// Pusher delivers a message to a set of device tokens.
type Pusher interface {
	Push(ctx context.Context, tokens []string, msg PushMessage) error
}

// =============================================================================
// Router
// =============================================================================

// PushRouter sends Expo tokens through Expo and everything else through FCM.
// Either provider may be nil, in which case its tokens are dropped.
type PushRouter struct {
	expo Pusher
	fcm  Pusher
}

func NewPushRouter(expo, fcm Pusher) *PushRouter {
	return &PushRouter{expo: expo, fcm: fcm}
}

func (r *PushRouter) Push(ctx context.Context, tokens []string, msg PushMessage) error {
	var expoTokens, fcmTokens []string
	for _, t := range tokens {
		if isExpoToken(t) {
			expoTokens = append(expoTokens, t)
		} else {
			fcmTokens = append(fcmTokens, t)
		}
	}

	var errs []string
	if r.expo != nil && len(expoTokens) > 0 {
		if err := r.expo.Push(ctx, expoTokens, msg); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if r.fcm != nil && len(fcmTokens) > 0 {
		if err := r.fcm.Push(ctx, fcmTokens, msg); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("push: %s", strings.Join(errs, "; "))
	}
	return nil
}

func isExpoToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}

// =============================================================================
// Expo
// =============================================================================

// DefaultExpoPushURL is Expo's push endpoint. Expo needs no credentials.
const DefaultExpoPushURL = "https://exp.host/--/api/v2/push/send"

// ExpoPushClient sends push notifications via Expo's Push API.
type ExpoPushClient struct {
	httpClient *http.Client
	url        string
}

type expoPushMessage struct {
	To       []string          `json:"to"`
	Title    string            `json:"title,omitempty"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

type expoPushResponse struct {
	Data []struct {
		Status  string `json:"status"`
		Message string `json:"message,omitempty"`
		Details struct {
			Error string `json:"error,omitempty"`
		} `json:"details,omitempty"`
	} `json:"data"`
}

// NewExpoPushClient creates a client for the given endpoint; an empty url
// means DefaultExpoPushURL.
func NewExpoPushClient(url string) *ExpoPushClient {
	if url == "" {
		url = DefaultExpoPushURL
	}
	return &ExpoPushClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        url,
	}
}

// Push sends one request covering every token. Per-token failures are
// logged; only transport and HTTP errors are returned.
func (c *ExpoPushClient) Push(ctx context.Context, tokens []string, msg PushMessage) error {
	if len(tokens) == 0 {
		return nil
	}

	payload, err := json.Marshal(expoPushMessage{
		To:       tokens,
		Title:    msg.Title,
		Body:     msg.Body,
		Data:     msg.Data,
		Sound:    "default",
		Priority: "high",
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expo api error: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var pushResp expoPushResponse
	if err := json.Unmarshal(respBody, &pushResp); err != nil {
		// Expo accepted the batch; only the ticket detail is lost.
		log.Printf("[ExpoPush] Failed to parse response: %v", err)
		return nil
	}

	failed := 0
	for i, ticket := range pushResp.Data {
		if ticket.Status != "ok" {
			failed++
			log.Printf("[ExpoPush] Token %d failed: %s (error: %s)", i, ticket.Message, ticket.Details.Error)
		}
	}
	log.Printf("[ExpoPush] Sent to %d tokens: %d success, %d failed", len(tokens), len(tokens)-failed, failed)
	return nil
}

// =============================================================================
// FCM
// =============================================================================

// FCMClient sends native iOS/Android pushes through Firebase Cloud Messaging.
type FCMClient struct {
	client *messaging.Client
}

// NewFCMClient builds a client from service-account fields. The private key
// may carry literal "\n" sequences as stored in .env files.
func NewFCMClient(ctx context.Context, projectID, clientEmail, privateKey string) (*FCMClient, error) {
	privateKey = strings.ReplaceAll(privateKey, "\\n", "\n")

	creds, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"project_id":   projectID,
		"private_key":  privateKey,
		"client_email": clientEmail,
		"token_uri":    "https://oauth2.googleapis.com/token",
	})
	if err != nil {
		return nil, fmt.Errorf("encode firebase credentials: %w", err)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	log.Printf("[FCM] Initialized for project: %s", projectID)
	return &FCMClient{client: client}, nil
}

// fcmBatchSize is the multicast limit of the FCM API.
const fcmBatchSize = 500

func (c *FCMClient) Push(ctx context.Context, tokens []string, msg PushMessage) error {
	for start := 0; start < len(tokens); start += fcmBatchSize {
		end := min(start+fcmBatchSize, len(tokens))

		response, err := c.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens:       tokens[start:end],
			Notification: &messaging.Notification{Title: msg.Title, Body: msg.Body},
			Data:         msg.Data,
			Android: &messaging.AndroidConfig{
				Priority:     "high",
				Notification: &messaging.AndroidNotification{Sound: "default"},
			},
			APNS: &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
			},
		})
		if err != nil {
			return fmt.Errorf("send multicast: %w", err)
		}

		log.Printf("[FCM] Sent to %d tokens: %d success, %d failure",
			end-start, response.SuccessCount, response.FailureCount)
		for i, resp := range response.Responses {
			if !resp.Success {
				log.Printf("[FCM] Token %d failed: %v", start+i, resp.Error)
			}
		}
	}
	return nil
}
