package export

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ETAnderson/offersync/internal/atomicfile"
	"github.com/ETAnderson/offersync/internal/domain"
	"github.com/ETAnderson/offersync/internal/signing"
	"github.com/ETAnderson/offersync/internal/worker"
)

// Record is the public view of one offer read by the redemption service.
type Record struct {
	ID           int64            `json:"id"`
	Type         domain.OfferType `json:"type"`
	Name         string           `json:"name"`
	Image        string           `json:"image"`
	AuthKeys     []string         `json:"authKeys"`
	RequiresAuth bool             `json:"requiresAuth"`
}

const codeToIDKey = "codeToId"

// Payload encodes as one object: offer id -> Record, plus the "codeToId" lookup.
type Payload struct {
	Offers   map[string]Record
	CodeToID map[string]int64
}

func NewPayload() Payload {
	return Payload{
		Offers:   make(map[string]Record),
		CodeToID: make(map[string]int64),
	}
}

func (p Payload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Offers)+1)
	for id, rec := range p.Offers {
		out[id] = rec
	}
	codes := p.CodeToID
	if codes == nil {
		codes = map[string]int64{}
	}
	out[codeToIDKey] = codes
	return json.Marshal(out)
}

// Add registers rec and maps every code to its id.
func (p Payload) Add(rec Record, codes ...string) {
	if rec.AuthKeys == nil {
		rec.AuthKeys = []string{}
	}
	p.Offers[strconv.FormatInt(rec.ID, 10)] = rec
	for _, c := range codes {
		if c != "" {
			p.CodeToID[c] = rec.ID
		}
	}
}

// Writer writes the payload to Path and, when SigningKey is set, a detached JWT to Path+".jwt".
type Writer struct {
	Path       string
	SigningKey *rsa.PrivateKey
	Now        func() time.Time
}

func (w Writer) Write(ctx context.Context, p Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}

	if err := atomicfile.Write(w.Path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	if w.SigningKey == nil {
		return nil
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	tok, err := signing.SignExport(w.SigningKey, data, len(p.Offers), worker.RunID(ctx), now())
	if err != nil {
		return fmt.Errorf("sign export: %w", err)
	}
	if err := atomicfile.Write(SignaturePath(w.Path), []byte(tok+"\n"), 0o644); err != nil {
		return fmt.Errorf("write export signature: %w", err)
	}
	return nil
}

func SignaturePath(exportPath string) string {
	return exportPath + ".jwt"
}
