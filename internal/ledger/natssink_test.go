package ledger

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/guidectl/internal/model"
)

type fakeNATSConn struct {
	published []fakePublish
	err       error
	closed    bool
}

type fakePublish struct {
	subject string
	data    []byte
}

func (f *fakeNATSConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, fakePublish{subject: subject, data: data})
	return nil
}

func (f *fakeNATSConn) Close() { f.closed = true }

func TestNATSSink_PublishMarshalsAndSendsToSubject(t *testing.T) {
	fake := &fakeNATSConn{}
	sink := &NATSSink{conn: fake, subject: "guidectl.events"}

	event := model.RunEvent{ID: "evt-1", TaskIntent: model.IntentBugFix}
	require.NoError(t, sink.Publish(event))

	require.Len(t, fake.published, 1)
	assert.Equal(t, "guidectl.events", fake.published[0].subject)

	var decoded model.RunEvent
	require.NoError(t, json.Unmarshal(fake.published[0].data, &decoded))
	assert.Equal(t, "evt-1", decoded.ID)
}

func TestNATSSink_PublishPropagatesConnError(t *testing.T) {
	fake := &fakeNATSConn{err: errors.New("broker unreachable")}
	sink := &NATSSink{conn: fake, subject: "guidectl.events"}

	err := sink.Publish(model.RunEvent{ID: "evt-2"})
	assert.ErrorContains(t, err, "broker unreachable")
}

func TestNATSSink_CloseClosesConn(t *testing.T) {
	fake := &fakeNATSConn{}
	sink := &NATSSink{conn: fake, subject: "guidectl.events"}
	sink.Close()
	assert.True(t, fake.closed)
}
