package command

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/corvidchat/corvid/internal/session"
)

type sayCall struct{ target, text string }
type partCall struct{ target, reason string }

type fakeHandle struct {
	says        []sayCall
	joins       []string
	parts       []partCall
	whois       []string
	disconnects []string
	doneFns     []func()
}

func (f *fakeHandle) Join(channels string) error { f.joins = append(f.joins, channels); return nil }
func (f *fakeHandle) Part(target, reason string) error {
	f.parts = append(f.parts, partCall{target, reason})
	return nil
}
func (f *fakeHandle) Say(target, text string) error {
	f.says = append(f.says, sayCall{target, text})
	return nil
}
func (f *fakeHandle) Whois(nick string) error { f.whois = append(f.whois, nick); return nil }
func (f *fakeHandle) Disconnect(message string, done func()) error {
	f.disconnects = append(f.disconnects, message)
	f.doneFns = append(f.doneFns, done)
	return nil
}

type fakeResolver struct {
	handles map[session.ID]*fakeHandle
}

func (f *fakeResolver) Handle(id session.ID) (session.Handle, bool) {
	h, ok := f.handles[id]
	if !ok {
		return nil, false
	}
	return h, true
}

type fixture struct {
	interp    *Interpreter
	handle    *fakeHandle
	submitted []session.Event
	snap      *session.Model
}

// newFixture builds an interpreter with one connection, one channel, and one
// query, with the channel view active.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn := &session.Connection{
		ID:        1,
		Name:      "irc.example.org:6667",
		Nick:      "crow",
		Connected: true,
		Channels:  []*session.Channel{{ID: 2, Name: "#go", Users: []string{"crow"}}},
		Queries:   []*session.Query{{ID: 3, Name: "raven"}},
	}
	snap := session.NewModel()
	snap.Connections = []*session.Connection{conn}
	snap.Active = session.View{ConnectionID: 1, Type: session.ViewChannel, Target: 2}

	f := &fixture{
		handle: &fakeHandle{},
		snap:   snap,
	}
	resolver := &fakeResolver{handles: map[session.ID]*fakeHandle{1: f.handle}}
	f.interp = NewInterpreter(resolver, func(ev session.Event) {
		f.submitted = append(f.submitted, ev)
	}, zerolog.Nop())
	return f
}

func TestPlainTextGoesToActiveTarget(t *testing.T) {
	f := newFixture(t)

	evs := f.interp.Interpret("hello everyone", f.snap)

	if evs != nil {
		t.Fatalf("plain text must not produce events, got %+v", evs)
	}
	if len(f.handle.says) != 1 || f.handle.says[0] != (sayCall{"#go", "hello everyone"}) {
		t.Fatalf("unexpected says: %+v", f.handle.says)
	}
}

func TestPlainTextInQueryView(t *testing.T) {
	f := newFixture(t)
	f.snap.Active = session.View{ConnectionID: 1, Type: session.ViewQuery, Target: 3}

	f.interp.Interpret("psst", f.snap)

	if len(f.handle.says) != 1 || f.handle.says[0] != (sayCall{"raven", "psst"}) {
		t.Fatalf("unexpected says: %+v", f.handle.says)
	}
}

func TestEmptyLineIsNoop(t *testing.T) {
	f := newFixture(t)

	if evs := f.interp.Interpret("", f.snap); evs != nil {
		t.Fatalf("empty line must be a no-op, got %+v", evs)
	}
}

func TestConnectProducesEvent(t *testing.T) {
	f := newFixture(t)

	evs := f.interp.Interpret("/connect irc.libera.chat:6697 crow", f.snap)

	if len(evs) != 1 || evs[0].Kind != session.EventConnectRequested {
		t.Fatalf("unexpected events: %+v", evs)
	}
	if evs[0].Server != "irc.libera.chat:6697" || evs[0].Nick != "crow" {
		t.Fatalf("unexpected payload: %+v", evs[0])
	}
}

func TestConnectRequiresServerAndNick(t *testing.T) {
	f := newFixture(t)

	if evs := f.interp.Interpret("/connect irc.libera.chat:6697", f.snap); evs != nil {
		t.Fatalf("incomplete connect must be a no-op, got %+v", evs)
	}
}

func TestJoinPassesChannelList(t *testing.T) {
	f := newFixture(t)

	f.interp.Interpret("/join #go,#rust", f.snap)

	if len(f.handle.joins) != 1 || f.handle.joins[0] != "#go,#rust" {
		t.Fatalf("unexpected joins: %+v", f.handle.joins)
	}
}

func TestJoinWithoutArgsIsNoop(t *testing.T) {
	f := newFixture(t)

	f.interp.Interpret("/join", f.snap)

	if len(f.handle.joins) != 0 {
		t.Fatalf("unexpected joins: %+v", f.handle.joins)
	}
}

func TestMsgWithBodySendsDirectly(t *testing.T) {
	f := newFixture(t)

	evs := f.interp.Interpret("/msg magpie shiny  things", f.snap)

	if evs != nil {
		t.Fatalf("msg with body must not produce events, got %+v", evs)
	}
	if len(f.handle.says) != 1 || f.handle.says[0] != (sayCall{"magpie", "shiny  things"}) {
		t.Fatalf("message body must survive verbatim: %+v", f.handle.says)
	}
}

func TestMsgWithoutBodyOpensQuery(t *testing.T) {
	f := newFixture(t)

	evs := f.interp.Interpret("/msg magpie", f.snap)

	if len(evs) != 1 || evs[0].Kind != session.EventQueryOpened || evs[0].Target != "magpie" {
		t.Fatalf("unexpected events: %+v", evs)
	}
	if len(f.handle.says) != 0 {
		t.Fatalf("no message should be sent: %+v", f.handle.says)
	}
}

func TestQueryAliasesMsg(t *testing.T) {
	f := newFixture(t)

	evs := f.interp.Interpret("/query magpie", f.snap)

	if len(evs) != 1 || evs[0].Kind != session.EventQueryOpened {
		t.Fatalf("unexpected events: %+v", evs)
	}
}

func TestPartActiveChannel(t *testing.T) {
	f := newFixture(t)

	f.interp.Interpret("/part", f.snap)

	if len(f.handle.parts) != 1 || f.handle.parts[0] != (partCall{"#go", ""}) {
		t.Fatalf("unexpected parts: %+v", f.handle.parts)
	}
}

func TestPartNamedChannelWithReason(t *testing.T) {
	f := newFixture(t)

	f.interp.Interpret("/part #rust gone fishing", f.snap)

	if len(f.handle.parts) != 1 || f.handle.parts[0] != (partCall{"#rust", "gone fishing"}) {
		t.Fatalf("unexpected parts: %+v", f.handle.parts)
	}
}

func TestCloseActiveQueryIsLocal(t *testing.T) {
	f := newFixture(t)
	f.snap.Active = session.View{ConnectionID: 1, Type: session.ViewQuery, Target: 3}

	evs := f.interp.Interpret("/close", f.snap)

	if len(evs) != 1 || evs[0].Kind != session.EventQueryRemoved || evs[0].QueryID != 3 {
		t.Fatalf("unexpected events: %+v", evs)
	}
	if len(f.handle.parts) != 0 {
		t.Fatalf("closing a query must not touch the network: %+v", f.handle.parts)
	}
}

func TestLeaveAliasesPart(t *testing.T) {
	f := newFixture(t)

	f.interp.Interpret("/leave", f.snap)

	if len(f.handle.parts) != 1 || f.handle.parts[0].target != "#go" {
		t.Fatalf("unexpected parts: %+v", f.handle.parts)
	}
}

func TestPartOnConnectionViewIsNoop(t *testing.T) {
	f := newFixture(t)
	f.snap.Active = session.View{ConnectionID: 1, Type: session.ViewConnection, Target: 1}

	evs := f.interp.Interpret("/part", f.snap)

	if evs != nil || len(f.handle.parts) != 0 {
		t.Fatalf("part without a channel context must be a no-op: %+v %+v", evs, f.handle.parts)
	}
}

func TestWhois(t *testing.T) {
	f := newFixture(t)

	f.interp.Interpret("/whois raven", f.snap)

	if len(f.handle.whois) != 1 || f.handle.whois[0] != "raven" {
		t.Fatalf("unexpected whois: %+v", f.handle.whois)
	}
}

func TestDisconnectSubmitsRemovalOnCompletion(t *testing.T) {
	f := newFixture(t)

	f.interp.Interpret("/disconnect see you", f.snap)

	if len(f.handle.disconnects) != 1 || f.handle.disconnects[0] != "see you" {
		t.Fatalf("unexpected disconnects: %+v", f.handle.disconnects)
	}
	if len(f.submitted) != 0 {
		t.Fatalf("removal must wait for the network: %+v", f.submitted)
	}

	f.handle.doneFns[0]()

	if len(f.submitted) != 1 || f.submitted[0].Kind != session.EventConnectionRemoved || f.submitted[0].ConnID != 1 {
		t.Fatalf("unexpected submissions: %+v", f.submitted)
	}
}

func TestQuitDisconnectsEveryConnection(t *testing.T) {
	f := newFixture(t)
	// Second connection without a live handle.
	f.snap.Connections = append(f.snap.Connections, &session.Connection{ID: 7, Name: "irc.two.org:6667", Nick: "crow"})

	f.interp.Interpret("/quit bye", f.snap)

	if len(f.handle.disconnects) != 1 || f.handle.disconnects[0] != "bye" {
		t.Fatalf("unexpected disconnects: %+v", f.handle.disconnects)
	}
	// Handle-less connection is removed directly.
	if len(f.submitted) != 1 || f.submitted[0].ConnID != 7 {
		t.Fatalf("unexpected submissions: %+v", f.submitted)
	}

	f.handle.doneFns[0]()

	if len(f.submitted) != 2 || f.submitted[1].ConnID != 1 {
		t.Fatalf("unexpected submissions: %+v", f.submitted)
	}
}

func TestUnknownCommandIsNoop(t *testing.T) {
	f := newFixture(t)

	evs := f.interp.Interpret("/dance", f.snap)

	if evs != nil || len(f.handle.says) != 0 {
		t.Fatalf("unknown command must be a no-op: %+v %+v", evs, f.handle.says)
	}
}
