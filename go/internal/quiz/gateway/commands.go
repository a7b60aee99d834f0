package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Inbound command types.
const (
	CmdHostBind       = "host:bind"
	CmdHostStart      = "host:start"
	CmdHostNext       = "host:next"
	CmdHostEnd        = "host:end"
	CmdHostSetBalance = "host:set-balance"
	CmdHostKick       = "host:kick"
	CmdHostSoulSwap   = "host:soul-swap"
	CmdHostPenalty    = "host:penalty"
	CmdPlayerJoin     = "player:join"
	CmdPlayerReady    = "player:ready"
	CmdPlayerAnswer   = "player:answer"
	CmdPlayerChoose   = "player:choose-chest"
)

var errBadCommand = errors.New("malformed command")

// Envelope is the wire shape of every inbound frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type codePayload struct {
	Code string `json:"code"`
}

type nextPayload struct {
	Code     string `json:"code"`
	PlayerID string `json:"player_id,omitempty"`
}

type endPayload struct {
	Code   string `json:"code"`
	Reason string `json:"reason,omitempty"`
}

type setBalancePayload struct {
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
	Amount   *int   `json:"amount"`
}

type targetPayload struct {
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
}

type soulSwapPayload struct {
	Code    string `json:"code"`
	PlayerA string `json:"player_a"`
	PlayerB string `json:"player_b"`
}

type joinPayload struct {
	Code   string `json:"code"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

type answerPayload struct {
	Code        string          `json:"code"`
	AnswerIndex json.RawMessage `json:"answer_index"`
}

type choosePayload struct {
	Code   string `json:"code"`
	Choice *int   `json:"choice,omitempty"`
}

// decodeEnvelope parses the outer frame. Unknown top-level fields are rejected.
func decodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := strictUnmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("missing type: %w", errBadCommand)
	}
	return env, nil
}

// decodePayload parses a command payload into v and checks that a code is present.
func decodePayload(raw json.RawMessage, v interface{ code() string }) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing payload: %w", errBadCommand)
	}
	if err := strictUnmarshal(raw, v); err != nil {
		return err
	}
	if strings.TrimSpace(v.code()) == "" {
		return fmt.Errorf("missing code: %w", errBadCommand)
	}
	return nil
}

func (p *codePayload) code() string       { return p.Code }
func (p *nextPayload) code() string       { return p.Code }
func (p *endPayload) code() string        { return p.Code }
func (p *setBalancePayload) code() string { return p.Code }
func (p *targetPayload) code() string     { return p.Code }
func (p *soulSwapPayload) code() string   { return p.Code }
func (p *joinPayload) code() string       { return p.Code }
func (p *answerPayload) code() string     { return p.Code }
func (p *choosePayload) code() string     { return p.Code }

func strictUnmarshal(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadCommand, err)
	}
	if dec.More() {
		return fmt.Errorf("trailing data: %w", errBadCommand)
	}
	return nil
}

// coerceAnswer accepts a JSON number or a numeric string. Anything that is
// not a whole number maps to -1, which never matches a correct option.
func coerceAnswer(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("missing answer_index: %w", errBadCommand)
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return wholeOrMiss(n), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return -1, nil
		}
		return wholeOrMiss(f), nil
	}
	return -1, nil
}

func wholeOrMiss(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return -1
	}
	return int(f)
}
