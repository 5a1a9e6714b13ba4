package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"lovenest/internal/apperr"
	"lovenest/internal/models"
	"lovenest/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileInsertNeverDuplicates(t *testing.T) {
	gw := newFakeGateway()
	s, _ := signedIn(t, gw)

	note := models.Note{ID: "n1", Content: "hi", Color: models.NoteRose}
	s.Reconcile(insertEvent(t, TableNotes, note))
	s.Reconcile(insertEvent(t, TableNotes, note))
	s.Reconcile(insertEvent(t, TableNotes, models.Note{ID: "n2", Content: "again"}))

	assert.Equal(t, []string{"n2", "n1"}, ids(s.Notes()))
}

func TestReconcileMessagesAppendInDeliveryOrder(t *testing.T) {
	gw := newFakeGateway()
	s, _ := signedIn(t, gw)

	s.Reconcile(insertEvent(t, TableMessages, models.Message{ID: "a"}))
	s.Reconcile(insertEvent(t, TableMessages, models.Message{ID: "b"}))

	assert.Equal(t, []string{"a", "b"}, ids(s.Messages()))
}

func TestReconcileDelete(t *testing.T) {
	gw := newFakeGateway()
	s, _ := signedIn(t, gw)
	s.Reconcile(insertEvent(t, TableNotes, models.Note{ID: "n1"}))

	s.Reconcile(deleteEvent(TableNotes, "n1"))
	assert.Empty(t, s.Notes())

	s.Reconcile(deleteEvent(TableNotes, "n1"))
	assert.Empty(t, s.Notes())
}

func TestReconcileUpdateReplacesRecord(t *testing.T) {
	gw := newFakeGateway()
	s, _ := signedIn(t, gw)
	s.Reconcile(insertEvent(t, TableMessages, models.Message{ID: "a", Content: "hey"}))

	ev := insertEvent(t, TableMessages, models.Message{ID: "a", Content: "hey", Read: true})
	ev.Kind = realtime.Update
	s.Reconcile(ev)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Read)
}

func TestReconcileIgnoresOtherTables(t *testing.T) {
	gw := newFakeGateway()
	s, rec := signedIn(t, gw)
	before := len(rec.changed)

	s.Reconcile(insertEvent(t, "moods", models.Mood{ID: "x"}))

	assert.Empty(t, s.Moods())
	assert.Len(t, rec.changed, before)
}

func TestSendMessageWithRealtimeEchoKeepsOneEntry(t *testing.T) {
	gw := newFakeGateway()
	s, _ := signedIn(t, gw)
	release := gw.holdOn("SendMessage")

	done := make(chan error, 1)
	go func() { done <- s.SendMessage(context.Background(), "good morning") }()
	<-gw.entered

	user, _ := s.Identity()
	s.Reconcile(insertEvent(t, TableMessages, models.Message{ID: "m-1", Content: "good morning", SenderID: user.ID}))
	release()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"m-1"}, ids(s.Messages()))
}

func TestSendMessageEchoAfterConfirmIsDropped(t *testing.T) {
	gw := newFakeGateway()
	s, _ := signedIn(t, gw)

	require.NoError(t, s.SendMessage(context.Background(), "hello"))
	s.Reconcile(insertEvent(t, TableMessages, models.Message{ID: "m-1", Content: "hello"}))

	assert.Equal(t, []string{"m-1"}, ids(s.Messages()))
}

func TestSendMessageRelaysPreview(t *testing.T) {
	gw := newFakeGateway()
	s, _ := signedIn(t, gw)

	long := strings.Repeat("é", 60)
	require.NoError(t, s.SendMessage(context.Background(), long))

	require.Len(t, gw.notified, 1)
	assert.Equal(t, "💬 "+strings.Repeat("é", 50)+"...", gw.notified[0].Message)
}

func TestSendMessageFailureRemovesEntryAndSkipsPush(t *testing.T) {
	gw := newFakeGateway()
	s, rec := signedIn(t, gw)
	gw.failOn("SendMessage", apperr.Remote("send message", errBackend))

	require.NoError(t, s.SendMessage(context.Background(), "hello"))

	assert.Empty(t, s.Messages())
	assert.Zero(t, gw.called("Notify"))
	assert.Len(t, rec.Notices(), 1)
}

func TestSendMessagePushFailureIsNotFatal(t *testing.T) {
	gw := newFakeGateway()
	s, rec := signedIn(t, gw)
	gw.failOn("Notify", apperr.Invalid("player_id", "player_id is required"))

	require.NoError(t, s.SendMessage(context.Background(), "hello"))

	assert.Equal(t, []string{"m-1"}, ids(s.Messages()))
	assert.Empty(t, rec.Notices())
}

func TestMarkReadFlagsPartnerMessages(t *testing.T) {
	gw := newFakeGateway()
	s, _ := signedIn(t, gw)
	user, _ := s.Identity()
	s.Reconcile(insertEvent(t, TableMessages, models.Message{ID: "mine", SenderID: user.ID}))
	s.Reconcile(insertEvent(t, TableMessages, models.Message{ID: "theirs", SenderID: "partner"}))

	require.NoError(t, s.MarkRead(context.Background()))

	assert.Equal(t, []string{"theirs"}, gw.readIDs)
	msgs := s.Messages()
	assert.False(t, msgs[0].Read)
	assert.True(t, msgs[1].Read)

	require.NoError(t, s.MarkRead(context.Background()))
	assert.Equal(t, 1, gw.called("MarkMessagesRead"))
}

func TestMarkReadFailureRestoresFlags(t *testing.T) {
	gw := newFakeGateway()
	s, _ := signedIn(t, gw)
	s.Reconcile(insertEvent(t, TableMessages, models.Message{ID: "theirs", SenderID: "partner"}))
	gw.failOn("MarkMessagesRead", apperr.Remote("mark read", errBackend))

	require.NoError(t, s.MarkRead(context.Background()))

	assert.False(t, s.Messages()[0].Read)
}

func TestAddNoteDedupesAgainstEcho(t *testing.T) {
	gw := newFakeGateway()
	s, _ := signedIn(t, gw)
	release := gw.holdOn("CreateNote")

	done := make(chan models.Note, 1)
	go func() {
		n, _ := s.AddNote(context.Background(), "buy flowers", models.NoteGreen)
		done <- n
	}()
	<-gw.entered
	s.Reconcile(insertEvent(t, TableNotes, models.Note{ID: "srv-1", Content: "buy flowers"}))
	release()

	n := <-done
	assert.Equal(t, models.ID("srv-1"), n.ID)
	assert.Equal(t, []string{"srv-1"}, ids(s.Notes()))
}

func TestDeleteNoteFailureKeepsConcurrentInserts(t *testing.T) {
	gw := newFakeGateway()
	s, _ := signedIn(t, gw)
	for _, id := range []models.ID{"c", "b", "a"} {
		s.Reconcile(insertEvent(t, TableNotes, models.Note{ID: id}))
	}
	gw.failOn("DeleteNote", apperr.Remote("delete note", errBackend))
	release := gw.holdOn("DeleteNote")

	done := make(chan error, 1)
	go func() { done <- s.DeleteNote(context.Background(), "b") }()
	<-gw.entered
	assert.Equal(t, []string{"a", "c"}, ids(s.Notes()))

	s.Reconcile(insertEvent(t, TableNotes, models.Note{ID: "d"}))
	release()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"d", "b", "a", "c"}, ids(s.Notes()))
}

func TestAttachAppliesEventsUntilLogout(t *testing.T) {
	gw := newFakeGateway()
	s, _ := signedIn(t, gw)
	src := newFakeSource()
	s.Attach(s.Generation(), src)

	src.events <- insertEvent(t, TableNotes, models.Note{ID: "n1"})
	require.Eventually(t, func() bool { return len(s.Notes()) == 1 }, time.Second, 5*time.Millisecond)

	s.Logout(context.Background())
	select {
	case <-src.closed:
	case <-time.After(time.Second):
		t.Fatal("change feed was not closed on logout")
	}
	assert.Empty(t, s.Notes())
}

func TestAttachReplacesPreviousSource(t *testing.T) {
	gw := newFakeGateway()
	s, _ := signedIn(t, gw)
	first, second := newFakeSource(), newFakeSource()

	require.True(t, s.Attach(s.Generation(), first))
	require.True(t, s.Attach(s.Generation(), second))

	select {
	case <-first.closed:
	case <-time.After(time.Second):
		t.Fatal("previous change feed still open")
	}
	second.events <- insertEvent(t, TableMessages, models.Message{ID: "m"})
	require.Eventually(t, func() bool { return len(s.Messages()) == 1 }, time.Second, 5*time.Millisecond)

	s.Detach()
	<-second.closed
}

func TestAttachAfterLogoutClosesSource(t *testing.T) {
	gw := newFakeGateway()
	s, _ := signedIn(t, gw)
	gen := s.Generation()
	src := newFakeSource()

	s.Logout(context.Background())
	assert.False(t, s.Attach(gen, src))

	select {
	case <-src.closed:
	case <-time.After(time.Second):
		t.Fatal("change feed of an ended session left open")
	}

	// a later login with the stale generation is refused too
	require.NoError(t, s.Login(context.Background(), "ana@example.com", "secret"))
	late := newFakeSource()
	assert.False(t, s.Attach(gen, late))
	<-late.closed
}
