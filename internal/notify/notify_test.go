package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"reservo/backend/internal/domain"
)

type fakeSender struct {
	sendFn func(ctx context.Context, to, subject, html string) error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, html string) error {
	if f.sendFn == nil {
		return nil
	}
	return f.sendFn(ctx, to, subject, html)
}

func testReservation() domain.Reservation {
	return domain.Reservation{
		ID:           uuid.MustParse("00000000-0000-0000-0000-00000000aaaa"),
		Name:         "Ana",
		Phone:        "+38591111222",
		Email:        "ana@example.com",
		Registration: "ZG-1234-AB",
		StartTime:    time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
	}
}

func TestSendIntake_RendersConfirmationLink(t *testing.T) {
	var gotTo, gotSubject, gotHTML string
	n, err := NewNotifier(&fakeSender{
		sendFn: func(ctx context.Context, to, subject, html string) error {
			gotTo, gotSubject, gotHTML = to, subject, html
			return nil
		},
	}, "https://book.example.com/", nil)
	if err != nil {
		t.Fatalf("NewNotifier error: %v", err)
	}

	r := testReservation()
	if err := n.SendIntake(context.Background(), r); err != nil {
		t.Fatalf("SendIntake error: %v", err)
	}

	if gotTo != "ana@example.com" {
		t.Fatalf("to = %q", gotTo)
	}
	if gotSubject != "Confirm your reservation" {
		t.Fatalf("subject = %q", gotSubject)
	}
	wantLink := "https://book.example.com/v1/confirmation?uuid=" + r.ID.String()
	if !strings.Contains(gotHTML, wantLink) {
		t.Fatalf("body missing confirmation link %q", wantLink)
	}
	if !strings.Contains(gotHTML, "Ana") || !strings.Contains(gotHTML, "ZG-1234-AB") {
		t.Fatalf("body missing reservation details")
	}
	if !strings.Contains(gotHTML, "02.03.2026., 09:30") {
		t.Fatalf("body missing formatted timeslot: %s", gotHTML)
	}
	if strings.Contains(gotHTML, "{{") {
		t.Fatalf("body contains unresolved placeholders")
	}
}

func TestSendConfirmationAndCancellation_NoPlaceholdersLeft(t *testing.T) {
	var bodies []string
	n, err := NewNotifier(&fakeSender{
		sendFn: func(ctx context.Context, to, subject, html string) error {
			bodies = append(bodies, html)
			return nil
		},
	}, "https://book.example.com", nil)
	if err != nil {
		t.Fatalf("NewNotifier error: %v", err)
	}

	r := testReservation()
	if err := n.SendConfirmation(context.Background(), r); err != nil {
		t.Fatalf("SendConfirmation error: %v", err)
	}
	if err := n.SendCancellation(context.Background(), r); err != nil {
		t.Fatalf("SendCancellation error: %v", err)
	}

	for i, body := range bodies {
		if strings.Contains(body, "{{") {
			t.Fatalf("body %d contains unresolved placeholders", i)
		}
	}
}

func TestSend_TransportErrorPropagates(t *testing.T) {
	sendErr := errors.New("smtp down")
	n, err := NewNotifier(&fakeSender{
		sendFn: func(ctx context.Context, to, subject, html string) error {
			return sendErr
		},
	}, "https://book.example.com", nil)
	if err != nil {
		t.Fatalf("NewNotifier error: %v", err)
	}

	if err := n.SendIntake(context.Background(), testReservation()); !errors.Is(err, sendErr) {
		t.Fatalf("error = %v, want wrapped %v", err, sendErr)
	}
}
