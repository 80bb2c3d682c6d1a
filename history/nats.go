package history

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// DefaultNATSStream is the JetStream stream used when none is configured.
	DefaultNATSStream = "BROWSER_TEST_HISTORY"

	natsSubjectPrefix  = "browser-test-harness.history"
	natsPublishTimeout = 5 * time.Second
)

var natsUnsafeTokenChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// NATSStore mirrors records into a JetStream stream, one message per record on the subject
// browser-test-harness.history.<scenario>. The stream denies deletes and purges, and each message
// carries the record ID as its Nats-Msg-Id so that a retried publish is not stored twice.
type NATSStore struct {
	js     jetstream.JetStream
	stream jetstream.Stream
	conn   *nats.Conn
}

// OpenNATS connects to a NATS server and creates or updates the stream.
func OpenNATS(ctx context.Context, url, streamName string) (*NATSStore, error) {
	nc, err := nats.Connect(url, nats.Name("browser-test-harness"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	s, err := NewNATSStore(ctx, js, streamName)
	if err != nil {
		nc.Close()
		return nil, err
	}
	s.conn = nc
	return s, nil
}

// NewNATSStore uses an existing JetStream context. The caller keeps ownership of its connection.
func NewNATSStore(ctx context.Context, js jetstream.JetStream, streamName string) (*NATSStore, error) {
	if streamName == "" {
		streamName = DefaultNATSStream
	}
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        streamName,
		Description: "Browser scenario run history",
		Subjects:    []string{natsSubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardNew,
		DenyDelete:  true,
		DenyPurge:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}
	return &NATSStore{js: js, stream: stream}, nil
}

func (n *NATSStore) Name() string {
	return "nats:" + n.stream.CachedInfo().Config.Name
}

func subjectFor(r Record) string {
	return natsSubjectPrefix + "." + natsUnsafeTokenChars.ReplaceAllString(r.Scenario, "_")
}

func (n *NATSStore) Append(ctx context.Context, r Record) error {
	ctx, cancel := context.WithTimeout(ctx, natsPublishTimeout)
	defer cancel()
	if _, err := n.js.Publish(ctx, subjectFor(r), MarshalRecordJSON(r), jetstream.WithMsgID(r.RecordID)); err != nil {
		return &StoreWriteError{Backend: n.Name(), RecordID: r.RecordID, Err: err}
	}
	return nil
}

// Records reads back every record in the stream, in the order they were published.
func (n *NATSStore) Records(ctx context.Context) ([]Record, error) {
	info, err := n.stream.Info(ctx)
	if err != nil {
		return nil, err
	}
	var ret []Record
	for seq := info.State.FirstSeq; seq <= info.State.LastSeq && info.State.Msgs > 0; seq++ {
		msg, err := n.stream.GetMsg(ctx, seq)
		if err != nil {
			return nil, fmt.Errorf("failed to read message %d: %w", seq, err)
		}
		r, err := UnmarshalRecordJSON(msg.Data)
		if err != nil {
			return nil, err
		}
		ret = append(ret, r)
	}
	return ret, nil
}

func (n *NATSStore) Close() error {
	if n.conn != nil {
		return n.conn.Drain()
	}
	return nil
}
