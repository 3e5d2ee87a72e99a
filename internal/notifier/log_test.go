package notifier

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/amishk599/vacancyfeed/internal/model"
)

func TestLogNotifier_Deliver(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	err := n.Deliver(context.Background(), model.Message{RecordID: "101", Text: "*Вакансия* от 14.03.2025"})
	if err != nil {
		t.Errorf("Deliver() = %v, want nil", err)
	}
	out := buf.String()
	if !strings.Contains(out, "id=101") {
		t.Errorf("log output missing id: %s", out)
	}
}

func TestSendTestMessage_UsesDeliverer(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	if err := SendTestMessage(context.Background(), n); err != nil {
		t.Fatalf("SendTestMessage() = %v", err)
	}
	if !strings.Contains(buf.String(), "test-001") {
		t.Errorf("expected test message in log, got %s", buf.String())
	}
}
