package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Artifact represents an immutable output produced by a model backend.
type Artifact struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Adapter   string    `json:"adapter"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Hash      string    `json:"hash"`
}

// New creates a new Artifact with computed hash.
func New(content, adapter, model string) *Artifact {
	a := &Artifact{
		ID:        uuid.NewString(),
		Content:   content,
		Adapter:   adapter,
		Model:     model,
		CreatedAt: time.Now().UTC(),
	}
	a.Hash = a.computeHash()
	return a
}

// Verify reports whether the stored hash still matches the content.
func (a *Artifact) Verify() bool {
	return a != nil && a.Hash == a.computeHash()
}

func (a *Artifact) computeHash() string {
	h := sha256.New()
	h.Write([]byte(a.Content))
	h.Write([]byte(a.Adapter))
	h.Write([]byte(a.Model))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
