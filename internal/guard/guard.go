// Package guard решает, может ли пользователь выполнить действие над заявкой
// или предложением. Все проверки чистые: без обращений к базе и побочных
// эффектов, поэтому их можно вызывать под блокировкой заявки.
package guard

import (
	"github.com/senyabanana/furniture-market/internal/models"
)

type Action string // Действие, которое проверяет guard

const (
	CreateRequest    Action = "create_request"
	ViewRequest      Action = "view_request"
	CloseRequest     Action = "close_request"
	ViewHistory      Action = "view_history"
	CreateProposal   Action = "create_proposal"
	ViewProposals    Action = "view_proposals"
	AcceptProposal   Action = "accept_proposal"
	RejectProposal   Action = "reject_proposal"
	WithdrawProposal Action = "withdraw_proposal"
)

// Target - сущности, над которыми выполняется действие.
type Target struct {
	Request  *models.Request
	Proposal *models.Proposal
	// ActorProposal - не отозванное предложение самого пользователя по заявке, если есть.
	ActorProposal *models.Proposal
}

// Decision - результат проверки.
type Decision struct {
	Allowed bool
	Reason  models.DenyReason
	Message string
	// OwnOnly выставляется для view_proposals, когда мастер может видеть
	// только своё предложение.
	OwnOnly bool
}

// Err превращает отказ в ошибку доступа. Для разрешённого действия возвращает nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return models.NewAuthorizationError(d.Reason, d.Message)
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason models.DenyReason, message string) Decision {
	return Decision{Reason: reason, Message: message}
}

// Check проверяет, может ли actor выполнить action над target.
func Check(actor models.Actor, action Action, target Target) Decision {
	switch action {
	case CreateRequest:
		if !actor.IsClient() {
			return deny(models.WrongRole, "only clients can create requests")
		}
		return allow()

	case ViewRequest:
		if target.Request == nil {
			return deny(models.NotOwner, "request is required")
		}
		if actor.IsAdmin() || actor.IsMaster() || isOwner(actor, target.Request) {
			return allow()
		}
		if !actor.IsClient() {
			return deny(models.WrongRole, "guests cannot view requests")
		}
		return deny(models.NotOwner, "clients can only view their own requests")

	case CloseRequest:
		if target.Request == nil {
			return deny(models.NotOwner, "request is required")
		}
		if !actor.IsAdmin() && !isOwner(actor, target.Request) {
			return deny(models.NotOwner, "only the request owner can close it")
		}
		if target.Request.Status == models.ClosedRequest {
			return deny(models.TerminalState, "request is already closed")
		}
		return allow()

	case ViewHistory:
		if target.Request == nil {
			return deny(models.NotOwner, "request is required")
		}
		if !actor.IsAdmin() && !isOwner(actor, target.Request) {
			return deny(models.NotOwner, "only the request owner can view its history")
		}
		return allow()

	case CreateProposal:
		return checkCreateProposal(actor, target)

	case ViewProposals:
		if target.Request == nil {
			return deny(models.NotOwner, "request is required")
		}
		if actor.IsAdmin() || isOwner(actor, target.Request) {
			return allow()
		}
		if actor.IsMaster() {
			if target.ActorProposal == nil {
				return deny(models.NotOwner, "masters can only view their own proposals")
			}
			return Decision{Allowed: true, OwnOnly: true}
		}
		if actor.IsClient() {
			return deny(models.NotOwner, "only the request owner can view its proposals")
		}
		return deny(models.WrongRole, "guests cannot view proposals")

	case AcceptProposal, RejectProposal:
		return checkDecision(actor, action, target)

	case WithdrawProposal:
		if target.Proposal == nil {
			return deny(models.NotOwner, "proposal is required")
		}
		if !actor.IsMaster() || target.Proposal.MasterID != actor.ID {
			return deny(models.NotOwner, "masters can only withdraw their own proposals")
		}
		if target.Proposal.Status.IsTerminal() {
			return deny(models.TerminalState, "proposal is already "+string(target.Proposal.Status))
		}
		return allow()
	}
	return deny(models.WrongRole, "unknown action "+string(action))
}

func checkCreateProposal(actor models.Actor, target Target) Decision {
	if !actor.IsMaster() {
		return deny(models.WrongRole, "only masters can submit proposals")
	}
	if target.Request == nil {
		return deny(models.NotOwner, "request is required")
	}
	if target.Request.Status.IsTerminal() {
		return deny(models.TerminalState, "request is "+string(target.Request.Status)+" and takes no new proposals")
	}
	if target.ActorProposal != nil && target.ActorProposal.Status != models.WithdrawnProposal {
		return deny(models.DuplicateProposal, "you already have an active proposal on this request")
	}
	return allow()
}

func checkDecision(actor models.Actor, action Action, target Target) Decision {
	if target.Request == nil || target.Proposal == nil {
		return deny(models.NotOwner, "request and proposal are required")
	}
	if !isOwner(actor, target.Request) {
		if action == AcceptProposal {
			return deny(models.NotOwner, "only the request owner can accept proposals")
		}
		return deny(models.NotOwner, "only the request owner can reject proposals")
	}
	if target.Request.Status.IsTerminal() {
		return deny(models.TerminalState, "request is already "+string(target.Request.Status))
	}
	if target.Proposal.Status.IsTerminal() {
		return deny(models.TerminalState, "proposal is already "+string(target.Proposal.Status))
	}
	return allow()
}

func isOwner(actor models.Actor, request *models.Request) bool {
	return actor.ID != "" && request.OwnerID == actor.ID
}
