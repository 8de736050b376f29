package web

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// API Response structures
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type StatusResponse struct {
	Version    string           `json:"version"`
	GoVersion  string           `json:"go_version"`
	Uptime     string           `json:"uptime"`
	MQTT       MQTTStatus       `json:"mqtt"`
	Publisher  PublisherDetail  `json:"publisher"`
	Subscriber SubscriberDetail `json:"subscriber"`
}

type MQTTStatus struct {
	Broker     string `json:"broker"`
	ClientID   string `json:"client_id"`
	Topic      string `json:"topic"`
	Connection string `json:"connection"`
}

type PublisherDetail struct {
	State    string `json:"state"`
	Interval string `json:"interval"`
	Cycles   uint64 `json:"cycles"`
	Failures uint64 `json:"failures"`
}

type SubscriberDetail struct {
	Received uint64 `json:"received"`
	Rejected uint64 `json:"rejected"`
}

type ReadingResponse struct {
	Topic       string    `json:"topic"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Timestamp   time.Time `json:"timestamp"`
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	response := StatusResponse{
		Version:   s.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		MQTT: MQTTStatus{
			Broker:     s.connection.Broker(),
			ClientID:   s.connection.ClientID(),
			Topic:      s.config.MQTT.Topic,
			Connection: s.connection.GetState().String(),
		},
		Publisher: PublisherDetail{
			State:    s.publisher.State().String(),
			Interval: s.config.Publisher.Interval,
			Cycles:   s.publisher.Cycles(),
			Failures: s.publisher.Failures(),
		},
	}
	response.Subscriber.Received, response.Subscriber.Rejected = s.subscriber.Counts()

	writeAPIResponse(w, response)
}

func (s *Server) handleAPILatestReading(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	latest, ok := s.subscriber.Latest()
	if !ok {
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "No reading received yet", nil)
		return
	}

	writeAPIResponse(w, ReadingResponse{
		Topic:       latest.Topic,
		Temperature: float64(latest.Reading.Temperature),
		Humidity:    latest.Reading.Humidity,
		Timestamp:   latest.Reading.Timestamp,
	})
}

func writeAPIResponse(w http.ResponseWriter, data interface{}) {
	response := APIResponse{
		Success: true,
		Data:    data,
	}
	writeJSONResponse(w, http.StatusOK, response)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
	writeJSONResponse(w, status, response)
}

func writeJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
