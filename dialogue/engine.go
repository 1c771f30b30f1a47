// Package dialogue is the conversation state machine: it classifies each inbound
// message, advances the sender's session and produces the reply text.
package dialogue

import (
	"context"
	"errors"
	"log"
	"runtime/debug"
	"strings"
	"time"
	"unicode"

	"inmobot/models"
	"inmobot/scheduler"
	"inmobot/search"
	"inmobot/sessions"
)

// Inbound is one message delivered by a channel.
type Inbound struct {
	SenderID string
	Body     string
	IsGroup  bool
}

// Searcher is the listing side; search.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, c search.Criteria) ([]models.Listing, error)
	GetByReference(ctx context.Context, ref string) (*models.Listing, error)
	CountAvailable(ctx context.Context) (int, error)
}

// Booker is the visit side; scheduler.Scheduler implements it.
type Booker interface {
	CreateVisit(ctx context.Context, req scheduler.VisitRequest) (int64, error)
	ListUpcoming(ctx context.Context, clientID string) ([]models.Visit, error)
}

// Answerer writes a free-form reply to question using the candidate listings and,
// when present, passages of the internal manual as context.
type Answerer interface {
	Answer(ctx context.Context, question string, candidates []models.Listing, manual []string) (string, error)
}

// ManualLookup finds the internal-manual passages relevant to a question;
// search.Manual implements it.
type ManualLookup interface {
	Lookup(ctx context.Context, question string) ([]string, error)
}

type Engine struct {
	search     Searcher
	booker     Booker
	sessions   sessions.Store
	locks      *sessions.Locker
	classifier *Classifier

	answerer      Answerer
	answerTimeout time.Duration
	manual        ManualLookup

	agency  string
	contact string
	loc     *time.Location
	now     func() time.Time
}

type Option func(*Engine)

// WithAnswerer enables the natural-language fallback, each call bounded by timeout.
func WithAnswerer(a Answerer, timeout time.Duration) Option {
	return func(e *Engine) {
		e.answerer = a
		e.answerTimeout = timeout
	}
}

// WithManual adds manual passages to questions about procedures and policies.
// It only matters together with WithAnswerer.
func WithManual(m ManualLookup) Option {
	return func(e *Engine) { e.manual = m }
}

func WithClassifier(c *Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithLocation sets the zone user dates are read in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

func WithTexts(agency, contact string) Option {
	return func(e *Engine) {
		e.agency = agency
		e.contact = contact
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(searcher Searcher, booker Booker, store sessions.Store, opts ...Option) *Engine {
	e := &Engine{
		search:        searcher,
		booker:        booker,
		sessions:      store,
		locks:         sessions.NewLocker(),
		classifier:    defaultClassifier,
		answerTimeout: 20 * time.Second,
		agency:        "nuestra inmobiliaria",
		contact:       "Escríbenos por este mismo chat y un agente te atenderá.",
		loc:           time.UTC,
		now:           time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Handle runs one turn for in.SenderID. Turns of the same sender are serialized.
// ok is false when no reply must be sent (group messages, missing sender).
func (e *Engine) Handle(ctx context.Context, in Inbound) (reply string, ok bool) {
	if in.IsGroup || strings.TrimSpace(in.SenderID) == "" {
		return "", false
	}
	user := in.SenderID

	unlock := e.locks.Lock(user)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("dialogue: panic handling message from %s: %v\n%s", user, r, debug.Stack())
			e.reset(ctx, user)
			reply, ok = msgGenericError, true
		}
	}()

	st, err := e.sessions.Get(ctx, user)
	if err != nil {
		log.Printf("dialogue: load session %s: %v", user, err)
		e.reset(ctx, user)
		return msgGenericError, true
	}

	intent := e.classifier.Classify(in.Body)
	reply, next, err := e.step(ctx, user, st, intent)
	if err != nil {
		log.Printf("dialogue: %s in %s (%s): %v", user, st.Step, intent.Kind, err)
		e.reset(ctx, user)
		return msgGenericError, true
	}

	if err := e.sessions.Put(ctx, user, next); err != nil {
		log.Printf("dialogue: save session %s: %v", user, err)
		e.reset(ctx, user)
		return msgGenericError, true
	}
	return reply, true
}

func (e *Engine) reset(ctx context.Context, user string) {
	if err := e.sessions.Clear(ctx, user); err != nil {
		log.Printf("dialogue: clear session %s: %v", user, err)
	}
}

// step is the transition function. A returned error aborts the turn and resets
// the session; user-correctable problems are replies, not errors.
func (e *Engine) step(ctx context.Context, user string, st sessions.State, in Intent) (string, sessions.State, error) {
	if in.Kind == MenuCommand || st.Step == sessions.StepInit {
		return e.menu(ctx, st), menuState(st), nil
	}

	switch st.Step {
	case sessions.StepSearching:
		return e.runSearch(ctx, st, in.Raw)
	case sessions.StepVisitPendingListing:
		return e.startBooking(ctx, st, st.CurrentListing)
	case sessions.StepVisitPendingName:
		return e.takeName(st, in.Raw)
	case sessions.StepVisitPendingDate:
		return e.takeDate(ctx, user, st, in)
	}

	// MENU y DETAIL_SHOWN
	switch in.Kind {
	case MenuOption, NumericSelection:
		return e.numeric(ctx, user, st, in)
	case ReferenceLookup:
		return e.lookup(ctx, st, in.Reference)
	case VisitRequest:
		l, err := e.search.GetByReference(ctx, in.Reference)
		if errors.Is(err, models.ErrNotFound) {
			return msgNotFound, st, nil
		}
		if err != nil {
			return "", st, err
		}
		st.CurrentListing = l.Reference
		return e.startBooking(ctx, st, l.Reference)
	default:
		return e.freeText(ctx, st, in.Raw)
	}
}

func menuState(st sessions.State) sessions.State {
	st.ResetTransient()
	st.Step = sessions.StepMenu
	return st
}

func (e *Engine) menu(ctx context.Context, st sessions.State) string {
	n, err := e.search.CountAvailable(ctx)
	if err != nil {
		log.Printf("dialogue: count listings: %v", err)
		n = 0
	}
	return renderMenu(e.agency, n)
}

// numeric resolves digits. In MENU an in-range selection of the last results wins
// over the menu option with the same number; in DETAIL_SHOWN options 1-4 win so
// "3" books the listing on screen.
func (e *Engine) numeric(ctx context.Context, user string, st sessions.State, in Intent) (string, sessions.State, error) {
	n := in.Number
	inRange := n >= 1 && n <= len(st.Results)

	if in.Kind == MenuOption && (st.Step == sessions.StepDetailShown || !inRange) {
		return e.option(ctx, user, st, n)
	}
	if len(st.Results) == 0 {
		return msgNothingToSelect, st, nil
	}
	if !inRange {
		return renderOutOfRange(n, len(st.Results)), st, nil
	}
	return e.lookup(ctx, st, st.Results[n-1])
}

func (e *Engine) option(ctx context.Context, user string, st sessions.State, n int) (string, sessions.State, error) {
	switch n {
	case 1:
		st.Step = sessions.StepSearching
		return msgSearchPrompt, st, nil
	case 2:
		return msgReferencePrompt, st, nil
	case 3:
		if st.CurrentListing == "" {
			return msgSelectFirst, st, nil
		}
		return e.startBooking(ctx, st, st.CurrentListing)
	default:
		return e.contactInfo(ctx, user), st, nil
	}
}

func (e *Engine) contactInfo(ctx context.Context, user string) string {
	upcoming, err := e.booker.ListUpcoming(ctx, user)
	if err != nil {
		log.Printf("dialogue: upcoming visits for %s: %v", user, err)
		upcoming = nil
	}
	return renderContact(e.contact, upcoming, e.loc)
}

func (e *Engine) lookup(ctx context.Context, st sessions.State, ref string) (string, sessions.State, error) {
	l, err := e.search.GetByReference(ctx, ref)
	if errors.Is(err, models.ErrNotFound) {
		return msgNotFound, st, nil
	}
	if err != nil {
		return "", st, err
	}
	if !l.Available() {
		return msgNoLongerListed, st, nil
	}
	st.CurrentListing = l.Reference
	st.Step = sessions.StepDetailShown
	return renderDetail(*l), st, nil
}

func (e *Engine) runSearch(ctx context.Context, st sessions.State, text string) (string, sessions.State, error) {
	results, err := e.search.Search(ctx, search.Criteria{Text: text})
	if err != nil {
		return "", st, err
	}
	st.Step = sessions.StepMenu
	st.SetResults(references(results))
	if len(results) == 0 {
		return msgNoResults, st, nil
	}
	return renderList(results), st, nil
}

// startBooking passes through VISIT_PENDING_LISTING: the listing must still be
// available before the name is asked.
func (e *Engine) startBooking(ctx context.Context, st sessions.State, ref string) (string, sessions.State, error) {
	st.Step = sessions.StepVisitPendingListing
	l, err := e.search.GetByReference(ctx, ref)
	if errors.Is(err, models.ErrNotFound) || (err == nil && !l.Available()) {
		return msgNoLongerListed, menuState(st), nil
	}
	if err != nil {
		return "", st, err
	}
	st.CurrentListing = l.Reference
	st.ClientName = ""
	st.Step = sessions.StepVisitPendingName
	return msgNamePrompt, st, nil
}

func (e *Engine) takeName(st sessions.State, raw string) (string, sessions.State, error) {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" {
		return msgNameEmpty, st, nil
	}
	if r := []rune(name); len(r) > maxClientNameLength {
		name = string(r[:maxClientNameLength])
	}
	st.ClientName = name
	st.Step = sessions.StepVisitPendingDate
	return renderDatePrompt(name), st, nil
}

func (e *Engine) takeDate(ctx context.Context, user string, st sessions.State, in Intent) (string, sessions.State, error) {
	if in.Kind != DateTimeInput {
		return msgDateFormat, st, nil
	}
	when, err := ParseDateTime(in.Raw, e.loc)
	if err != nil {
		return msgDateFormat, st, nil
	}
	if !when.After(e.now()) {
		return msgDatePast, st, nil
	}

	id, err := e.booker.CreateVisit(ctx, scheduler.VisitRequest{
		ListingRef: st.CurrentListing,
		ClientName: st.ClientName,
		ClientID:   user,
		When:       when,
		Notes:      "Solicitada por chat",
	})
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return msgDatePast, st, nil
	case errors.Is(err, models.ErrNotFound):
		return msgNoLongerListed, menuState(st), nil
	case err != nil:
		return "", st, err
	}

	l, lerr := e.search.GetByReference(ctx, st.CurrentListing)
	if lerr != nil {
		l = nil
	}
	reply := renderConfirmation(id, st.CurrentListing, st.ClientName, when, l)
	return reply, menuState(st), nil
}

// freeText answers a question that is not a command. Without an Answerer the
// matching listings are listed instead.
func (e *Engine) freeText(ctx context.Context, st sessions.State, text string) (string, sessions.State, error) {
	candidates, err := e.search.Search(ctx, search.Criteria{Text: text})
	if err != nil {
		return "", st, err
	}

	if e.answerer == nil {
		if len(candidates) == 0 {
			return msgNoResults, st, nil
		}
		st.SetResults(references(candidates))
		return renderList(candidates), st, nil
	}

	actx, cancel := context.WithTimeout(ctx, e.answerTimeout)
	defer cancel()
	var manual []string
	if e.manual != nil && asksAboutManual(text) {
		manual, err = e.manual.Lookup(actx, text)
		if err != nil {
			log.Printf("dialogue: manual lookup unavailable: %v", err)
			manual = nil
		}
	}
	answer, err := e.answerer.Answer(actx, text, candidates, manual)
	if err != nil || strings.TrimSpace(answer) == "" {
		log.Printf("dialogue: answerer unavailable: %v", err)
		return msgApology, st, nil
	}
	if len(candidates) > 0 {
		st.SetResults(references(candidates))
	}
	return answer, st, nil
}

var manualKeywords = map[string]bool{
	"procedimiento":  true,
	"procedimientos": true,
	"como":           true,
	"politica":       true,
	"politicas":      true,
	"manual":         true,
}

var accentFolder = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u")

// asksAboutManual reports whether text mentions a procedure, policy or the
// manual itself ("¿Cómo reservo?", "política de mascotas").
func asksAboutManual(text string) bool {
	words := strings.FieldsFunc(accentFolder.Replace(strings.ToLower(text)), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if manualKeywords[w] {
			return true
		}
	}
	return false
}

func references(ls []models.Listing) []string {
	refs := make([]string, 0, len(ls))
	for _, l := range ls {
		refs = append(refs, l.Reference)
	}
	return refs
}
