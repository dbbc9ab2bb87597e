package protocol_test

import (
	"errors"
	"testing"

	"github.com/stargate-rv/relay/internal/model/protocol"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := protocol.DecodeEnvelope([]byte(`{"type":"chatOnly","sessionId":"rv-1","user":"Viewer","message":"hello"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if env.Type != protocol.TypeChatOnly || env.SessionID != "rv-1" || env.Message != "hello" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestDecodeEnvelopeRejectsMalformedJSON(t *testing.T) {
	_, err := protocol.DecodeEnvelope([]byte(`{"type":`))
	var perr *protocol.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestDecodeEnvelopeRequiresType(t *testing.T) {
	_, err := protocol.DecodeEnvelope([]byte(`{"message":"hello"}`))
	var perr *protocol.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"syncStage with stage", `{"type":"syncStage","stageNumber":3}`, false},
		{"syncStage zero stage", `{"type":"syncStage","stageNumber":0}`, false},
		{"syncStage missing stage", `{"type":"syncStage"}`, true},
		{"chatOnly with message", `{"type":"chatOnly","message":"hi"}`, false},
		{"chatOnly empty message", `{"type":"chatOnly"}`, true},
		{"sketchAndChat sketch only", `{"type":"sketchAndChat","sketch":"aGk="}`, false},
		{"sketchAndChat message only", `{"type":"sketchAndChat","message":"hi"}`, false},
		{"sketchAndChat neither", `{"type":"sketchAndChat"}`, true},
		{"draw needs nothing extra", `{"type":"draw","x":1}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := protocol.DecodeEnvelope([]byte(tt.payload))
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if err := env.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDrawPayloadKeepsUnknownFields(t *testing.T) {
	env, err := protocol.DecodeEnvelope([]byte(`{"type":"draw","x":10,"y":20,"color":"#ff0000"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	payload, err := env.DrawPayload()
	if err != nil {
		t.Fatalf("DrawPayload failed: %v", err)
	}
	if payload["x"] != float64(10) || payload["y"] != float64(20) || payload["color"] != "#ff0000" {
		t.Fatalf("payload lost fields: %v", payload)
	}

	protocol.RawFrame(payload).StampStage(2)
	if payload["stageNumber"] != 2 {
		t.Fatalf("expected stamped stage 2, got %v", payload["stageNumber"])
	}
}
