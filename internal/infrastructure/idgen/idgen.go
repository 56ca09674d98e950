package idgen

import (
	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/internal/usecase/interfaces"

	"github.com/google/uuid"
)

// Generator issues "prefix_<uuidv7>" ids. UUIDv7 starts with a millisecond
// timestamp, so ids sort by creation time. Escrow ids are not generated here;
// they are derived from the change order id.
type Generator struct{}

var _ interfaces.IIDGenerator = Generator{}

func New() Generator { return Generator{} }

func (Generator) NewJobID() string         { return newID(entities.JobIDPrefix) }
func (Generator) NewBidID() string         { return newID(entities.BidIDPrefix) }
func (Generator) NewChangeOrderID() string { return newID(entities.ChangeOrderIDPrefix) }

func newID(prefix string) string {
	u, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does.
		u = uuid.New()
	}
	return prefix + "_" + u.String()
}
