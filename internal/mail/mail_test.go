package mail

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/emersion/go-message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/config"
)

// closedAddr returns a local host and port with nothing listening on it.
func closedAddr(t *testing.T) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())
	return "127.0.0.1", addr.Port
}

func TestRecentWindow(t *testing.T) {
	tests := []struct {
		name         string
		count, limit int
		from, to     int
	}{
		{"empty", 0, 5, 0, 0},
		{"fewer than limit", 3, 5, 1, 3},
		{"exact", 5, 5, 1, 5},
		{"more than limit", 12, 5, 8, 12},
		{"non-positive limit", 12, 0, 8, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := recentWindow(tt.count, tt.limit)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestSMTPSenderNotConfigured(t *testing.T) {
	sender := NewSMTPSender(config.SMTPConfig{}, time.Second, nil)
	err := sender.Send(context.Background(), domain.OutgoingMail{To: "ops@example.com"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSMTPSenderRejectsBadRecipient(t *testing.T) {
	sender := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "tasks@example.com"}, time.Second, nil)
	err := sender.Send(context.Background(), domain.OutgoingMail{To: "not an address", Subject: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
}

func TestSMTPSenderFailsOnUnreachableHost(t *testing.T) {
	host, port := closedAddr(t)
	sender := NewSMTPSender(config.SMTPConfig{Host: host, Port: port, From: "tasks@example.com"}, time.Second, nil)

	err := sender.Send(context.Background(), domain.OutgoingMail{To: "ops@example.com", Subject: "Task 1", Body: "hello"})
	assert.Error(t, err)
}

func TestIMAPReaderNotConfigured(t *testing.T) {
	_, err := NewIMAPReader(config.InboxConfig{}, time.Second, nil).Recent(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestIMAPReaderFailsOnUnreachableHost(t *testing.T) {
	host, port := closedAddr(t)
	reader := NewIMAPReader(config.InboxConfig{Host: host, Port: port, TLS: true}, time.Second, nil)

	_, err := reader.Recent(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "imap connect")
}

func TestIMAPReaderListsInbox(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := server.New(memory.New())
	srv.AllowInsecureAuth = true
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	port := ln.Addr().(*net.TCPAddr).Port
	reader := NewIMAPReader(config.InboxConfig{
		Host:     "127.0.0.1",
		Port:     port,
		User:     "username",
		Password: "password",
	}, 2*time.Second, nil)

	got, err := reader.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "contact@example.org", got[0].From)
	assert.Equal(t, "A little message, just for you", got[0].Subject)
	assert.NotEqual(t, noDate, got[0].Date)
}

func TestIMAPReaderRejectsBadCredentials(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := server.New(memory.New())
	srv.AllowInsecureAuth = true
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	reader := NewIMAPReader(config.InboxConfig{
		Host:     "127.0.0.1",
		Port:     ln.Addr().(*net.TCPAddr).Port,
		User:     "username",
		Password: "wrong",
	}, 2*time.Second, nil)

	_, err = reader.Recent(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "imap login")
}

func TestSummarizeEnvelope(t *testing.T) {
	sent := time.Date(2024, 3, 24, 10, 5, 0, 0, time.UTC)
	got := summarizeEnvelope(&imap.Envelope{
		Subject: "Quarterly report",
		Date:    sent,
		From:    []*imap.Address{{MailboxName: "alice", HostName: "example.com"}},
	})
	assert.Equal(t, domain.MailSummary{From: "alice@example.com", Subject: "Quarterly report", Date: "2024-03-24 10:05:00"}, got)

	got = summarizeEnvelope(&imap.Envelope{From: []*imap.Address{{MailboxName: "undisclosed"}}})
	assert.Equal(t, domain.MailSummary{From: "", Subject: noSubject, Date: noDate}, got)

	assert.Equal(t, domain.MailSummary{Subject: noSubject, Date: noDate}, summarizeEnvelope(nil))
}

func TestSummarizeHeader(t *testing.T) {
	entity, err := message.Read(strings.NewReader(
		"From: Bob <bob@example.com>\r\n" +
			"Subject: =?utf-8?q?Caf=C3=A9_menu?=\r\n" +
			"Date: Fri, 22 Mar 2024 08:00:00 +0000\r\n" +
			"\r\n"))
	require.NoError(t, err)

	got := summarizeHeader(entity.Header)
	assert.Equal(t, "Bob <bob@example.com>", got.From)
	assert.Equal(t, "Café menu", got.Subject)
	assert.Equal(t, "Fri, 22 Mar 2024 08:00:00 +0000", got.Date)

	empty, err := message.Read(strings.NewReader("X-Empty: yes\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, domain.MailSummary{From: noSender, Subject: noSubject, Date: noDate}, summarizeHeader(empty.Header))
}

func TestPOP3ReaderNotConfigured(t *testing.T) {
	_, err := NewPOP3Reader(config.InboxConfig{}, time.Second, nil).Recent(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPOP3ReaderFailsOnUnreachableHost(t *testing.T) {
	host, port := closedAddr(t)
	reader := NewPOP3Reader(config.InboxConfig{Host: host, Port: port}, time.Second, nil)

	_, err := reader.Recent(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pop3 connect")
}

// fakeMaildrop serves a scripted POP3 session. Messages are indexed from 1;
// an empty entry answers TOP with -ERR.
func fakeMaildrop(t *testing.T, messages []string) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go servePOP3(conn, messages)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func servePOP3(conn net.Conn, messages []string) {
	defer conn.Close()
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	reply := func(line string) {
		_, _ = rw.WriteString(line + "\r\n")
		_ = rw.Flush()
	}

	reply("+OK fake maildrop ready")
	for {
		line, err := rw.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}
		switch strings.ToUpper(fields[0]) {
		case "USER", "PASS", "NOOP":
			reply("+OK")
		case "STAT":
			reply(fmt.Sprintf("+OK %d %d", len(messages), 120*len(messages)))
		case "TOP":
			id, _ := strconv.Atoi(fields[1])
			if id < 1 || id > len(messages) || messages[id-1] == "" {
				reply("-ERR no such message")
				continue
			}
			reply("+OK")
			for _, l := range strings.Split(messages[id-1], "\r\n") {
				if strings.HasPrefix(l, ".") {
					l = "." + l
				}
				_, _ = rw.WriteString(l + "\r\n")
			}
			reply(".")
		case "QUIT":
			reply("+OK bye")
			return
		default:
			reply("-ERR unknown command")
		}
	}
}

func header(from, subject string) string {
	return "From: " + from + "\r\nSubject: " + subject + "\r\nDate: Sat, 23 Mar 2024 12:00:00 +0000\r\n"
}

func TestPOP3ReaderReturnsNewestMessages(t *testing.T) {
	messages := make([]string, 0, 7)
	for i := 1; i <= 7; i++ {
		messages = append(messages, header(fmt.Sprintf("user%d@example.com", i), fmt.Sprintf("Message %d", i)))
	}
	port := fakeMaildrop(t, messages)
	reader := NewPOP3Reader(config.InboxConfig{Host: "127.0.0.1", Port: port, User: "u", Password: "p"}, 2*time.Second, nil)

	got, err := reader.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "Message 3", got[0].Subject)
	assert.Equal(t, "Message 7", got[4].Subject)
	assert.Equal(t, "user7@example.com", got[4].From)
}

func TestPOP3ReaderSkipsUnreadableMessage(t *testing.T) {
	port := fakeMaildrop(t, []string{
		header("a@example.com", "First"),
		"",
		header("c@example.com", "Third"),
	})
	reader := NewPOP3Reader(config.InboxConfig{Host: "127.0.0.1", Port: port}, 2*time.Second, nil)

	got, err := reader.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "First", got[0].Subject)
	assert.Equal(t, "Third", got[1].Subject)
}

func TestPOP3ReaderEmptyMaildrop(t *testing.T) {
	port := fakeMaildrop(t, nil)
	reader := NewPOP3Reader(config.InboxConfig{Host: "127.0.0.1", Port: port}, 2*time.Second, nil)

	got, err := reader.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

// silentListener accepts connections and never writes to them.
func silentListener(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	conns := make(chan net.Conn, 8)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns <- conn
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		for {
			select {
			case conn := <-conns:
				_ = conn.Close()
			default:
				return
			}
		}
	})
	return ln.Addr().(*net.TCPAddr).Port
}

func TestPOP3ReaderReturnsWhenServerStalls(t *testing.T) {
	port := silentListener(t)
	reader := NewPOP3Reader(config.InboxConfig{Host: "127.0.0.1", Port: port}, 2*time.Second, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := reader.Recent(ctx, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
