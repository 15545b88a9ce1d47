// Package controller owns the transaction list's client-side state: the
// current page, the single open label editor, scope flags, row selection,
// the tag catalog, and the tag-assignment dialog. The remote service stays
// the system of record; every mutation completes there before local state
// moves, and reads replace the page wholesale.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/username/cancat/client/src/api"
	"github.com/username/cancat/client/src/logger"
	"github.com/username/cancat/client/src/models"
	"github.com/username/cancat/client/src/services"
	"github.com/username/cancat/client/src/session"
)

// PageSize is fixed; the server is always asked for pages of ten.
const PageSize = 10

var (
	// ErrNoOpenEdit is returned by SaveLabelEdit when no label editor is open.
	ErrNoOpenEdit = errors.New("controller: no label edit is open")

	// ErrNotInPage is returned when an operation targets a transaction id
	// that is not in the currently loaded page.
	ErrNotInPage = errors.New("controller: transaction is not in the current page")

	// ErrOperationInFlight is returned when the same mutation against the
	// same transaction is already running. The duplicate trigger is rejected
	// locally; no second remote call is issued.
	ErrOperationInFlight = errors.New("controller: operation already in flight")
)

// API is the slice of the remote service the controller mutates and reads
// through. *api.Client satisfies it.
type API interface {
	Transactions(ctx context.Context, page, limit int, viewerScope int64) (*models.TransactionsResponse, error)
	UpdateTransaction(ctx context.Context, tx models.Transaction) (*models.Transaction, error)
	UpdateLabel(ctx context.Context, id int64, label string, replaceAll, applyToFuture bool) error
	UpdateTag(ctx context.Context, id, tagID int64) error
}

// Navigator is the surrounding application's navigation hook. GotoSignIn is
// called exactly once per unauthenticated signal, after the session has been
// invalidated.
type Navigator interface {
	GotoSignIn()
}

// ScopeFlags are the two options of an open label edit.
type ScopeFlags struct {
	ReplaceAllWithSameLabel   bool
	ApplyToFutureTransactions bool
}

// TagDialog is the single global tag-assignment dialog state.
type TagDialog struct {
	Open                bool
	TargetTransactionID int64
	SearchQuery         string
	NewTagDraft         string
}

type Controller struct {
	api     API
	catalog services.CatalogService
	session *session.Session
	nav     Navigator

	// viewerScope > 0 loads another user's shared transactions instead of
	// the caller's own. Shared views are read-only at the rendering layer.
	viewerScope int64

	mu          sync.Mutex
	page        models.Page
	editingID   int64 // 0 means no editor is open
	draftLabel  string
	scope       ScopeFlags
	selected    map[int64]struct{}
	tagCatalog  []models.Tag
	ruleCatalog []models.Rule
	dialog      TagDialog
	inflight    map[string]struct{}
}

// New builds a controller. nav may be nil when the surrounding application
// handles sign-in navigation elsewhere.
func New(remote API, catalog services.CatalogService, sess *session.Session, nav Navigator, viewerScope int64) *Controller {
	return &Controller{
		api:         remote,
		catalog:     catalog,
		session:     sess,
		nav:         nav,
		viewerScope: viewerScope,
		selected:    make(map[int64]struct{}),
		inflight:    make(map[string]struct{}),
	}
}

// LoadPage fetches page n (1-based) and replaces the local page wholesale.
// On an unauthenticated signal the session is invalidated and the navigator
// sent to sign-in; on any other failure the local page is left at its
// last-known-good value. There is no automatic retry.
func (c *Controller) LoadPage(ctx context.Context, n int) error {
	if n < 1 {
		return fmt.Errorf("controller: page number must be >= 1, got %d", n)
	}

	resp, err := c.api.Transactions(ctx, n, PageSize, c.viewerScope)
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			c.handleUnauthenticated()
		}
		return fmt.Errorf("loading page %d: %w", n, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = models.Page{
		Records:      resp.Transactions,
		PageNumber:   n,
		PageSize:     PageSize,
		TotalRecords: resp.TotalRecords,
	}
	// Edit state is page-scoped; a replaced page must not keep an editor
	// pointing at a row that may no longer be in view.
	c.discardEditLocked()
	return nil
}

// NextPage loads the following page. The call is issued unconditionally;
// the presentation layer disables its control once CanGoNext is false.
// Any open label edit is discarded silently.
func (c *Controller) NextPage(ctx context.Context) error {
	c.mu.Lock()
	n := c.page.PageNumber + 1
	c.discardEditLocked()
	c.mu.Unlock()
	return c.LoadPage(ctx, n)
}

// PreviousPage loads the preceding page. At page 1 it is a no-op with no
// network call. Any open label edit is discarded silently.
func (c *Controller) PreviousPage(ctx context.Context) error {
	c.mu.Lock()
	if c.page.PageNumber <= 1 {
		c.mu.Unlock()
		return nil
	}
	n := c.page.PageNumber - 1
	c.discardEditLocked()
	c.mu.Unlock()
	return c.LoadPage(ctx, n)
}

// CanGoNext reports whether records exist beyond the current page. The
// presentation layer keeps its next-page control enabled exactly when this
// is true.
func (c *Controller) CanGoNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page.HasNext()
}

// BeginLabelEdit opens the label editor for a row, seeding the draft with
// the row's effective label and resetting both scope flags. An already open
// editor for another row is discarded without saving; at most one editor is
// open at any time.
func (c *Controller) BeginLabelEdit(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx := c.page.Find(id)
	if tx == nil {
		return fmt.Errorf("begin label edit for %d: %w", id, ErrNotInPage)
	}
	c.editingID = id
	c.draftLabel = tx.EffectiveLabel()
	c.scope = ScopeFlags{}
	return nil
}

// CancelLabelEdit discards the open editor, if any, without a network call.
func (c *Controller) CancelLabelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discardEditLocked()
}

// SetDraftLabel updates the text of the open editor.
func (c *Controller) SetDraftLabel(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editingID != 0 {
		c.draftLabel = s
	}
}

// SetScopeFlags updates the open editor's scope flags.
func (c *Controller) SetScopeFlags(f ScopeFlags) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editingID != 0 {
		c.scope = f
	}
}

// SaveLabelEdit sends the draft label with its scope flags. The draft goes
// as-is; an empty string overwrites with an empty custom label. On success
// the edit state is cleared and both the current page and the rule catalog
// are refetched (a rule may have been created as a side effect). On failure
// the edit state is preserved so the user can retry without retyping.
func (c *Controller) SaveLabelEdit(ctx context.Context) error {
	c.mu.Lock()
	if c.editingID == 0 {
		c.mu.Unlock()
		return ErrNoOpenEdit
	}
	id := c.editingID
	draft := c.draftLabel
	flags := c.scope
	c.mu.Unlock()

	if err := c.beginOp("label", id); err != nil {
		return err
	}
	defer c.endOp("label", id)

	err := c.api.UpdateLabel(ctx, id, draft, flags.ReplaceAllWithSameLabel, flags.ApplyToFutureTransactions)
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			c.handleUnauthenticated()
		}
		return fmt.Errorf("saving label for %d: %w", id, err)
	}

	c.mu.Lock()
	c.discardEditLocked()
	current := c.page.PageNumber
	c.mu.Unlock()

	if err := c.LoadPage(ctx, current); err != nil {
		logWarn("Page refetch after label save failed", "transactionId", id, "error", err)
	}
	if rules, err := c.catalog.RefreshRules(ctx); err != nil {
		logWarn("Rule refetch after label save failed", "transactionId", id, "error", err)
	} else {
		c.mu.Lock()
		c.ruleCatalog = rules
		c.mu.Unlock()
	}
	return nil
}

// FlagFields are the independently toggleable boolean attributes of a row.
var FlagFields = []string{"pandb", "flag", "hidden", "m"}

// ToggleRowFlag negates one boolean attribute and writes the entire record
// back to the server; the wire contract is a full-record replace, not a
// field patch. The local copy of the one field changes only after the write
// acknowledges, so a failed write needs no rollback. The record sent is the
// cached copy: fields changed remotely between fetch and write are
// overwritten, and the contract carries no concurrency token.
func (c *Controller) ToggleRowFlag(ctx context.Context, id int64, field string) error {
	c.mu.Lock()
	tx := c.page.Find(id)
	if tx == nil {
		c.mu.Unlock()
		return fmt.Errorf("toggle %q on %d: %w", field, id, ErrNotInPage)
	}
	updated := *tx
	var newValue bool
	switch field {
	case "pandb":
		updated.PandB = !updated.PandB
		newValue = updated.PandB
	case "flag":
		updated.Flag = !updated.Flag
		newValue = updated.Flag
	case "hidden":
		updated.Hidden = !updated.Hidden
		newValue = updated.Hidden
	case "m":
		updated.M = !updated.M
		newValue = updated.M
	default:
		c.mu.Unlock()
		return fmt.Errorf("controller: unknown flag field %q", field)
	}
	c.mu.Unlock()

	if err := c.beginOp("toggle:"+field, id); err != nil {
		return err
	}
	defer c.endOp("toggle:"+field, id)

	if _, err := c.api.UpdateTransaction(ctx, updated); err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			c.handleUnauthenticated()
		}
		return fmt.Errorf("toggling %q on %d: %w", field, id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur := c.page.Find(id); cur != nil {
		switch field {
		case "pandb":
			cur.PandB = newValue
		case "flag":
			cur.Flag = newValue
		case "hidden":
			cur.Hidden = newValue
		case "m":
			cur.M = newValue
		}
	}
	return nil
}

// OpenTagDialog opens the tag dialog targeting a row, clearing the search
// query and the new-tag draft. There is a single global dialog.
func (c *Controller) OpenTagDialog(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialog = TagDialog{Open: true, TargetTransactionID: id}
}

// CloseTagDialog closes the tag dialog.
func (c *Controller) CloseTagDialog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialog = TagDialog{}
}

// SetTagSearch updates the dialog's search query.
func (c *Controller) SetTagSearch(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dialog.Open {
		c.dialog.SearchQuery = q
	}
}

// SetNewTagDraft updates the dialog's new-tag input.
func (c *Controller) SetNewTagDraft(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dialog.Open {
		c.dialog.NewTagDraft = s
	}
}

// FilterTagCatalog returns the tags whose name contains query,
// case-insensitively. Pure and synchronous; recomputed per keystroke.
func (c *Controller) FilterTagCatalog(query string) []models.Tag {
	c.mu.Lock()
	catalog := c.tagCatalog
	c.mu.Unlock()

	q := strings.ToLower(query)
	var out []models.Tag
	for _, tag := range catalog {
		if strings.Contains(strings.ToLower(tag.Name), q) {
			out = append(out, tag)
		}
	}
	return out
}

// AssignTag assigns an existing tag to a transaction, reloads the current
// page in full, and closes the dialog. On failure the dialog stays open.
func (c *Controller) AssignTag(ctx context.Context, id, tagID int64) error {
	if err := c.beginOp("assign-tag", id); err != nil {
		return err
	}
	defer c.endOp("assign-tag", id)

	if err := c.api.UpdateTag(ctx, id, tagID); err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			c.handleUnauthenticated()
		}
		return fmt.Errorf("assigning tag %d to %d: %w", tagID, id, err)
	}

	c.mu.Lock()
	current := c.page.PageNumber
	c.mu.Unlock()
	if err := c.LoadPage(ctx, current); err != nil {
		logWarn("Page refetch after tag assignment failed", "transactionId", id, "error", err)
	}
	c.CloseTagDialog()
	return nil
}

// CreateAndAssignTag creates a tag from the trimmed name and assigns it to
// the dialog's target transaction. A blank name is a silent no-op with no
// network call; the add control is simply inert. Duplicate names are the
// server's call and surface as its error.
func (c *Controller) CreateAndAssignTag(ctx context.Context, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil
	}

	tag, err := c.catalog.CreateTag(ctx, trimmed)
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			c.handleUnauthenticated()
		}
		return fmt.Errorf("creating tag %q: %w", trimmed, err)
	}

	c.mu.Lock()
	c.tagCatalog = append(c.tagCatalog, *tag)
	target := c.dialog.TargetTransactionID
	c.dialog.NewTagDraft = ""
	c.mu.Unlock()

	return c.AssignTag(ctx, target, tag.ID)
}

// DeleteRule deletes a rule and unconditionally refreshes the rule catalog.
// A delete failure is logged and returned but never blocks the refresh or
// further interaction.
func (c *Controller) DeleteRule(ctx context.Context, id int64) error {
	delErr := c.catalog.DeleteRule(ctx, id)
	if delErr != nil {
		if errors.Is(delErr, api.ErrUnauthenticated) {
			c.handleUnauthenticated()
			return fmt.Errorf("deleting rule %d: %w", id, delErr)
		}
		logWarn("Rule delete failed", "ruleId", id, "error", delErr)
	}

	if rules, err := c.catalog.RefreshRules(ctx); err != nil {
		logWarn("Rule refetch after delete failed", "ruleId", id, "error", err)
	} else {
		c.mu.Lock()
		c.ruleCatalog = rules
		c.mu.Unlock()
	}
	return delErr
}

// RefreshCatalogs loads the tag and rule catalogs, independently of the
// page. Done once at startup and whenever the surrounding application asks.
func (c *Controller) RefreshCatalogs(ctx context.Context) error {
	tags, err := c.catalog.Tags(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			c.handleUnauthenticated()
		}
		return fmt.Errorf("refreshing catalogs: %w", err)
	}
	rules, err := c.catalog.Rules(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			c.handleUnauthenticated()
		}
		return fmt.Errorf("refreshing catalogs: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tagCatalog = tags
	c.ruleCatalog = rules
	return nil
}

// SelectAll sets the selection to every loaded row id, or clears it.
func (c *Controller) SelectAll(checked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = make(map[int64]struct{})
	if checked {
		for _, tx := range c.page.Records {
			c.selected[tx.ID] = struct{}{}
		}
	}
}

// ToggleRow flips a row's membership in the selection. Selection is purely
// local; no bulk action is wired to it yet.
func (c *Controller) ToggleRow(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
	} else {
		c.selected[id] = struct{}{}
	}
}

// IsSelected reports a row's selection state.
func (c *Controller) IsSelected(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.selected[id]
	return ok
}

// SelectedRows returns the selected row ids in ascending order.
func (c *Controller) SelectedRows() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, 0, len(c.selected))
	for id := range c.selected {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Page returns the current page. The record slice is shared; callers treat
// it as read-only.
func (c *Controller) Page() models.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// EditState returns the open editor, if any.
func (c *Controller) EditState() (id int64, draft string, flags ScopeFlags, open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingID, c.draftLabel, c.scope, c.editingID != 0
}

// Dialog returns the tag dialog state.
func (c *Controller) Dialog() TagDialog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dialog
}

// TagCatalog returns the tag catalog in its server order.
func (c *Controller) TagCatalog() []models.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tagCatalog
}

// RuleCatalog returns the rule catalog.
func (c *Controller) RuleCatalog() []models.Rule {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ruleCatalog
}

// Shared reports whether this controller views another user's shared
// transactions. Shared views render without edit affordances.
func (c *Controller) Shared() bool {
	return c.viewerScope > 0
}

func (c *Controller) discardEditLocked() {
	c.editingID = 0
	c.draftLabel = ""
	c.scope = ScopeFlags{}
}

func (c *Controller) handleUnauthenticated() {
	logWarn("Unauthenticated response, clearing session")
	c.session.Invalidate()
	if c.nav != nil {
		c.nav.GotoSignIn()
	}
}

func (c *Controller) beginOp(op string, id int64) error {
	key := fmt.Sprintf("%s:%d", op, id)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, running := c.inflight[key]; running {
		return fmt.Errorf("%s for %d: %w", op, id, ErrOperationInFlight)
	}
	c.inflight[key] = struct{}{}
	return nil
}

func (c *Controller) endOp(op string, id int64) {
	key := fmt.Sprintf("%s:%d", op, id)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, key)
}

func logWarn(msg string, args ...any) {
	if logger.L != nil {
		logger.L.Warn(msg, args...)
	}
}
