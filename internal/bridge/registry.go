package bridge

import "context"

// RegistryMsg is the message union the registry loop consumes.
type RegistryMsg interface{ isRegistryMsg() }

type AddSession struct {
	ID      string
	Session *Session
}

type RemoveSession struct {
	ID string
}

type CountSessions struct {
	Reply chan int
}

// ShutdownAll tells every live session to say goodbye and terminate. Done is
// closed once the last of them has deregistered.
type ShutdownAll struct {
	Done chan struct{}
}

func (AddSession) isRegistryMsg()    {}
func (RemoveSession) isRegistryMsg() {}
func (CountSessions) isRegistryMsg() {}
func (ShutdownAll) isRegistryMsg()   {}

// Registry tracks live sessions from a single owner goroutine. It exists for
// two callers: the status endpoint (count) and graceful shutdown.
type Registry struct {
	inbox    chan RegistryMsg
	sessions map[string]*Session
	stopping bool
	drained  chan struct{}
	ctx      context.Context
}

func NewRegistry(ctx context.Context) *Registry {
	r := &Registry{
		inbox:    make(chan RegistryMsg, 64),
		sessions: make(map[string]*Session),
		ctx:      ctx,
	}
	go r.loop()
	return r
}

func (r *Registry) Inbox() chan<- RegistryMsg { return r.inbox }

func (r *Registry) loop() {
	for {
		select {
		case <-r.ctx.Done():
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case AddSession:
				r.sessions[msg.ID] = msg.Session
				if r.stopping {
					// a handshake that raced the shutdown gets the same farewell
					msg.Session.Shutdown()
				}

			case RemoveSession:
				delete(r.sessions, msg.ID)
				r.maybeDrained()

			case CountSessions:
				msg.Reply <- len(r.sessions)

			case ShutdownAll:
				for _, sess := range r.sessions {
					sess.Shutdown()
				}
				r.stopping = true
				r.drained = msg.Done
				r.maybeDrained()
			}
		}
	}
}

func (r *Registry) maybeDrained() {
	if r.drained != nil && len(r.sessions) == 0 {
		close(r.drained)
		r.drained = nil
	}
}
