package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
)

func TestBaseLocation(t *testing.T) {
	tests := map[string]string{
		"Quito":               "Quito",
		"Quito (Pichincha)":   "Quito",
		"  Loja  ":            "Loja",
		"(Galápagos)":         "(Galápagos)",
		"Santa Cruz (Gal.) ":  "Santa Cruz",
		"El Carmen (Manabí) ": "El Carmen",
	}
	for in, want := range tests {
		assert.Equal(t, want, BaseLocation(in), in)
	}
}

type failing struct{ err error }

func (f failing) Notify(context.Context, models.Notification) error { return f.err }

func TestMultiDeliversToAll(t *testing.T) {
	boom := errors.New("smtp down")
	out := &Outbox{}
	m := Multi{failing{boom}, out, LogNotifier{}}

	err := m.Notify(context.Background(), models.Notification{User: "ana", Location: "Quito"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, out.Sent(), 1)
}

func TestOutboxKeepsNewest(t *testing.T) {
	out := NewOutbox(3)
	for i := 0; i < 5; i++ {
		user := "ana"
		if i%2 == 1 {
			user = "luis"
		}
		assert.NoError(t, out.Notify(context.Background(), models.Notification{User: user, Location: fmt.Sprintf("L%d", i)}))
	}

	sent := out.Sent()
	if assert.Len(t, sent, 3) {
		assert.Equal(t, "L2", sent[0].Location)
		assert.Equal(t, "L4", sent[2].Location)
	}

	ana := out.ForUser("ana")
	if assert.Len(t, ana, 2) {
		assert.Equal(t, "L2", ana[0].Location)
		assert.Equal(t, "L4", ana[1].Location)
	}
	assert.Empty(t, out.ForUser("nadie"))
}
