package memory

import (
	"fmt"
	"testing"

	"github.com/chimein/chime/pkg/models"
)

func userMsg(text string) models.ChatMessage {
	return models.ChatMessage{
		Role:  models.RoleUser,
		Parts: []models.ContentPart{models.TextPart(text)},
	}
}

func TestMemory_AppendAndSnapshot(t *testing.T) {
	m := New(10)
	m.Append(userMsg("a"))
	m.Append(userMsg("b"))

	snap := m.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len(snapshot) = %d, want 2", len(snap))
	}
	if snap[0].Text() != "a" || snap[1].Text() != "b" {
		t.Errorf("snapshot order = [%q, %q], want [a, b]", snap[0].Text(), snap[1].Text())
	}
}

func TestMemory_EvictsOldestFirst(t *testing.T) {
	m := New(2)
	m.Append(userMsg("A"))
	m.Append(userMsg("B"))
	m.Append(userMsg("C"))

	snap := m.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len(snapshot) = %d, want 2", len(snap))
	}
	if snap[0].Text() != "B" || snap[1].Text() != "C" {
		t.Errorf("snapshot = [%q, %q], want [B, C]", snap[0].Text(), snap[1].Text())
	}
}

func TestMemory_BoundHoldsForLongSequences(t *testing.T) {
	const bound = 7
	m := New(bound)

	for i := 0; i < 100; i++ {
		m.Append(userMsg(fmt.Sprintf("msg-%d", i)))
		if m.Len() > bound {
			t.Fatalf("len = %d after %d appends, bound is %d", m.Len(), i+1, bound)
		}
	}

	// The retained entries are exactly the last `bound` appended, in order.
	snap := m.Snapshot()
	if len(snap) != bound {
		t.Fatalf("len(snapshot) = %d, want %d", len(snap), bound)
	}
	for i, msg := range snap {
		want := fmt.Sprintf("msg-%d", 100-bound+i)
		if msg.Text() != want {
			t.Errorf("snapshot[%d] = %q, want %q", i, msg.Text(), want)
		}
	}
}

func TestMemory_SnapshotIsACopy(t *testing.T) {
	m := New(5)
	m.Append(userMsg("original"))

	snap := m.Snapshot()
	snap[0] = userMsg("mutated")

	if got := m.Snapshot()[0].Text(); got != "original" {
		t.Errorf("memory entry = %q after mutating snapshot, want %q", got, "original")
	}
}

func TestNew_NonPositiveBoundUsesDefault(t *testing.T) {
	m := New(0)
	for i := 0; i < DefaultMaxMessages+10; i++ {
		m.Append(userMsg("x"))
	}
	if m.Len() != DefaultMaxMessages {
		t.Errorf("len = %d, want default bound %d", m.Len(), DefaultMaxMessages)
	}
}
