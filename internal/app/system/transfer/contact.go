package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/chapterhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Contact describes one outreach attempt. An empty Method is recorded as
// "other".
type Contact struct {
	Method string
	Notes  string
}

func (c Contact) normalize() (Contact, error) {
	if c.Method == "" {
		c.Method = models.ContactOther
	}
	if !models.IsContactMethod(c.Method) {
		return c, fmt.Errorf("contact method %q: %w", c.Method, outreach.ErrInvalidInput)
	}
	c.Notes = htmlsanitize.Plain(c.Notes)
	return c, nil
}

// MarkSuccessful records a successful contact and closes the assignment.
// Only the owner may do this, and only while the assignment is pending.
func (e *Engine) MarkSuccessful(ctx context.Context, caller outreach.Caller, assignmentID primitive.ObjectID, c Contact) (models.CommunicationAssignment, error) {
	return e.recordContact(ctx, caller, assignmentID, c, true)
}

// LogAttempt records an unsuccessful contact. The assignment stays pending
// and keeps aging toward the transfer threshold.
func (e *Engine) LogAttempt(ctx context.Context, caller outreach.Caller, assignmentID primitive.ObjectID, c Contact) (models.CommunicationAssignment, error) {
	return e.recordContact(ctx, caller, assignmentID, c, false)
}

func (e *Engine) recordContact(ctx context.Context, caller outreach.Caller, assignmentID primitive.ObjectID, c Contact, success bool) (models.CommunicationAssignment, error) {
	c, err := c.normalize()
	if err != nil {
		return models.CommunicationAssignment{}, err
	}
	a, err := e.store.GetByID(ctx, assignmentID)
	if err != nil {
		return models.CommunicationAssignment{}, err
	}
	if a.CommitteeMemberID != caller.ID {
		return models.CommunicationAssignment{}, outreach.ErrNotOwner
	}
	if !a.IsPending() {
		return models.CommunicationAssignment{}, fmt.Errorf("assignment %s is %s: %w", a.ID.Hex(), a.Status, outreach.ErrNotEligible)
	}

	now := e.now().UTC()
	entry := models.CommunicationLog{
		ID:                primitive.NewObjectID(),
		AssignmentID:      a.ID,
		MemberID:          a.MemberID,
		CommitteeMemberID: a.CommitteeMemberID,
		Method:            c.Method,
		ContactedAt:       now,
		WasSuccessful:     success,
		Notes:             c.Notes,
		CreatedBy:         caller.ID,
	}

	// The assignment write goes first: it only matches a row that is still
	// current and pending, so a concurrent transfer leaves no orphan log.
	err = e.tx.WithTx(ctx, func(ctx context.Context) error {
		write := e.store.TouchContact
		if success {
			write = e.store.MarkSuccessful
		}
		if err := write(ctx, a.ID, now); err != nil {
			if errors.Is(err, outreach.ErrNotFound) {
				return fmt.Errorf("assignment %s changed since it was read: %w", a.ID.Hex(), outreach.ErrNotEligible)
			}
			return err
		}
		if _, err := e.logs.Append(ctx, entry); err != nil {
			return fmt.Errorf("append contact log: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.CommunicationAssignment{}, err
	}

	a.LastContactAttempt = &now
	if success {
		a.Status = models.CommStatusSuccessful
	}
	e.log.Info("contact recorded",
		zap.String("assignment_id", a.ID.Hex()),
		zap.String("method", c.Method),
		zap.Bool("successful", success))
	return a, nil
}

// UpdateLog lets the author of a log correct its method and notes. The
// success flag cannot be changed.
func (e *Engine) UpdateLog(ctx context.Context, caller outreach.Caller, logID primitive.ObjectID, c Contact) (models.CommunicationLog, error) {
	c, err := c.normalize()
	if err != nil {
		return models.CommunicationLog{}, err
	}
	l, err := e.logs.GetByID(ctx, logID)
	if err != nil {
		return models.CommunicationLog{}, err
	}
	if l.CreatedBy != caller.ID {
		return models.CommunicationLog{}, outreach.ErrNotOwner
	}
	now := e.now().UTC()
	if err := e.logs.UpdateDetails(ctx, l.ID, c.Method, c.Notes, now); err != nil {
		return models.CommunicationLog{}, err
	}
	l.Method, l.Notes, l.UpdatedAt = c.Method, c.Notes, &now
	return l, nil
}

// Logs returns the contact log of an assignment, oldest first.
func (e *Engine) Logs(ctx context.Context, assignmentID primitive.ObjectID) ([]models.CommunicationLog, error) {
	return e.logs.ListForAssignment(ctx, assignmentID)
}
