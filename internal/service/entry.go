package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andymattgee/swe-blog/internal/logging"
	"github.com/andymattgee/swe-blog/internal/model"
	"github.com/andymattgee/swe-blog/internal/queue"
	"github.com/andymattgee/swe-blog/internal/storage"
)

// EntryService implements owner-scoped CRUD for journal entries.
type EntryService struct {
	entries    EntryStore
	images     imageSaver
	san        *Sanitizer
	publisher  SummaryPublisher
	summarizer Summarizer
	log        logging.Logger
}

func NewEntryService(entries EntryStore, images storage.Store, maxImageBytes int64, san *Sanitizer, log logging.Logger) *EntryService {
	return &EntryService{
		entries: entries,
		images:  imageSaver{store: images, maxBytes: maxImageBytes, log: log},
		san:     san,
		log:     log,
	}
}

// WithSummaries enables RequestSummary. A nil publisher runs jobs in a
// background goroutine instead of the broker.
func (s *EntryService) WithSummaries(pub SummaryPublisher, sum Summarizer) *EntryService {
	s.publisher = pub
	s.summarizer = sum
	return s
}

func (s *EntryService) List(ctx context.Context, userID uint64) ([]model.Entry, error) {
	list, err := s.entries.ListByOwner(ctx, userID)
	if err != nil {
		return nil, storeErr("list entries", err)
	}
	return list, nil
}

// Get returns ErrNotFound both for missing ids and for entries of other users.
func (s *EntryService) Get(ctx context.Context, userID, id uint64) (*model.Entry, error) {
	e, err := s.entries.GetByIDAndOwner(ctx, id, userID)
	if err != nil {
		return nil, storeErr("get entry", err)
	}
	return e, nil
}

func (s *EntryService) Create(ctx context.Context, userID uint64, in model.EntryInput, img *ImageUpload) (*model.Entry, error) {
	e := &model.Entry{UserID: userID}
	if err := s.apply(e, in); err != nil {
		return nil, err
	}
	if img != nil {
		ref, err := s.images.save(ctx, "entries", img)
		if err != nil {
			return nil, err
		}
		e.ImageURL = ref
	}
	if err := s.entries.Create(ctx, e); err != nil {
		s.images.discard(ctx, e.ImageURL)
		return nil, storeErr("create entry", err)
	}
	return e, nil
}

// Update applies the supplied fields; absent ones keep their stored value.
// An upload replaces the image; otherwise RemoveImage clears it.
func (s *EntryService) Update(ctx context.Context, userID, id uint64, in model.EntryInput, img *ImageUpload) (*model.Entry, error) {
	e, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	old := e.ImageURL
	if err := s.apply(e, in); err != nil {
		return nil, err
	}

	switch {
	case img != nil:
		ref, err := s.images.save(ctx, "entries", img)
		if err != nil {
			return nil, err
		}
		e.ImageURL = ref
	case in.RemoveImage:
		e.ImageURL = ""
	}

	if err := s.entries.Update(ctx, e); err != nil {
		if img != nil {
			s.images.discard(ctx, e.ImageURL)
		}
		return nil, storeErr("update entry", err)
	}
	if old != e.ImageURL {
		s.images.discard(ctx, old)
	}
	return e, nil
}

// Delete removes an entry and its image.
func (s *EntryService) Delete(ctx context.Context, userID, id uint64) error {
	e, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.entries.Delete(ctx, id, userID); err != nil {
		return storeErr("delete entry", err)
	}
	s.images.discard(ctx, e.ImageURL)
	return nil
}

// RequestSummary queues an AI summary of the entry. The summary lands on the
// entry later; callers only learn that the job was accepted.
func (s *EntryService) RequestSummary(ctx context.Context, userID, id uint64) error {
	if s.summarizer == nil {
		return fmt.Errorf("%w: summaries are not configured", ErrUpstream)
	}
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	ev := queue.SummaryRequestedEvent{EntryID: id, UserID: userID, RequestedAt: time.Now().UTC()}
	if s.publisher == nil {
		go func() {
			bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
			defer cancel()
			if err := s.ApplySummary(bg, ev); err != nil {
				s.log.Warn(bg, "inline summary failed", "entry_id", id, "err", err)
			}
		}()
		return nil
	}
	if err := s.publisher.PublishSummaryRequested(ctx, ev); err != nil {
		return fmt.Errorf("%w: queue summary: %w", ErrUpstream, err)
	}
	return nil
}

// ApplySummary is the queue handler: it summarizes the entry's plain text
// and stores the result under the owner's scope.
func (s *EntryService) ApplySummary(ctx context.Context, ev queue.SummaryRequestedEvent) error {
	e, err := s.Get(ctx, ev.UserID, ev.EntryID)
	if err != nil {
		return err
	}
	text := s.san.PlainText(e.ProfessionalContent + " " + e.PersonalContent)
	if text == "" {
		return invalid("content", "entry has no text to summarize")
	}
	summary, err := s.summarizer.Summarize(ctx, text)
	if err != nil {
		return err
	}
	if err := s.entries.SetSummary(ctx, e.ID, e.UserID, strings.TrimSpace(summary)); err != nil {
		return storeErr("store summary", err)
	}
	s.log.Info(ctx, "entry summarized", "entry_id", e.ID, "user_id", e.UserID)
	return nil
}

// apply copies supplied fields into e, sanitizing rich text, and checks the
// required ones.
func (s *EntryService) apply(e *model.Entry, in model.EntryInput) error {
	if in.Title != nil {
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.ProfessionalContent != nil {
		e.ProfessionalContent = s.san.RichText(*in.ProfessionalContent)
	}
	if in.PersonalContent != nil {
		e.PersonalContent = s.san.RichText(*in.PersonalContent)
	}
	if e.Title == "" {
		return invalid("title", "title is required")
	}
	if s.san.PlainText(e.ProfessionalContent) == "" {
		return invalid("professionalContent", "professional content is required")
	}
	return nil
}
