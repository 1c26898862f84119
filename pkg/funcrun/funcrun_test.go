package funcrun

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequester struct {
	lastSubject string
	lastData    []byte
	reply       []byte
	err         error
}

func (f *fakeRequester) RequestWithContext(_ context.Context, subj string, data []byte) (*nats.Msg, error) {
	f.lastSubject = subj
	f.lastData = data
	if f.err != nil {
		return nil, f.err
	}
	return &nats.Msg{Data: f.reply}, nil
}

func TestExecute_SendsRequestOnTheConfiguredSubjectAndDecodesTheReply(t *testing.T) {
	reply := Reply{Status: StatusSuccess, Value: json.RawMessage(`"web-1"`), Logs: []string{"ran ok"}, DurationMs: 42}
	replyBytes, err := json.Marshal(reply)
	require.NoError(t, err)

	fake := &fakeRequester{reply: replyBytes}
	client := &Client{conn: fake, subject: "funcrun.execute", timeout: time.Second}

	got, err := client.Execute(context.Background(), Request{
		FuncID:      "func-1",
		Args:        map[string]json.RawMessage{"name": json.RawMessage(`"web-1"`)},
		ExecutionID: "exec-1",
	})

	require.NoError(t, err)
	assert.Equal(t, reply, got)
	assert.Equal(t, "funcrun.execute", fake.lastSubject)

	var sent Request
	require.NoError(t, json.Unmarshal(fake.lastData, &sent))
	assert.Equal(t, "exec-1", sent.ExecutionID)
}

func TestExecute_PropagatesAFailureReplyWithoutRetrying(t *testing.T) {
	reply := Reply{Status: StatusFailure, Logs: []string{"boom"}}
	replyBytes, err := json.Marshal(reply)
	require.NoError(t, err)

	fake := &fakeRequester{reply: replyBytes}
	client := &Client{conn: fake, subject: "funcrun.execute", timeout: time.Second}

	got, err := client.Execute(context.Background(), Request{FuncID: "func-1", ExecutionID: "exec-2"})

	require.NoError(t, err, "a Failure reply is not itself a transport error")
	assert.Equal(t, StatusFailure, got.Status)
}

func TestExecute_RequestErrorIsWrapped(t *testing.T) {
	fake := &fakeRequester{err: errors.New("no responders")}
	client := &Client{conn: fake, subject: "funcrun.execute", timeout: time.Second}

	_, err := client.Execute(context.Background(), Request{FuncID: "func-1", ExecutionID: "exec-3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exec-3")
}

func TestWithTimeout_ReturnsAnIndependentCopy(t *testing.T) {
	client := New(nil, "funcrun.execute")
	shorter := client.WithTimeout(5 * time.Millisecond)

	assert.Equal(t, defaultTimeout, client.timeout)
	assert.Equal(t, 5*time.Millisecond, shorter.timeout)
}
