package relay

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/stargate-rv/relay/internal/model/protocol"
	"github.com/stargate-rv/relay/internal/service/ai"
)

var fencedJSON = regexp.MustCompile("(?s)```json(.*?)```")

// extractDetails runs the single-shot extraction call, parses the one
// fenced JSON block out of the response and announces the result. Any
// parse problem aborts the whole turn before streaming begins.
func (p *Pipeline) extractDetails(ctx context.Context, sessionID string, req ai.Request) ([]string, error) {
	response, err := p.generator.Invoke(ctx, req)
	if err != nil {
		return nil, generationErr(err)
	}

	match := fencedJSON.FindStringSubmatch(response.Content)
	if match == nil {
		return nil, extractionErr("no fenced json block in response")
	}

	var parsed struct {
		Details []string `json:"details"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(match[1])), &parsed); err != nil {
		return nil, extractionErr("invalid details block: %v", err)
	}

	log.Debug().Str("session", sessionID).Strs("details", parsed.Details).Msg("extracted session details")
	p.caster.Broadcast(sessionID, protocol.NewUpdateDetails(parsed.Details), nil)
	return parsed.Details, nil
}
