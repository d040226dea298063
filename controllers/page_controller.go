package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/bloghub/forms"
	"github.com/cppla/bloghub/mailer"
	"github.com/cppla/bloghub/middleware"
)

// ContactNotifier forwards contact form submissions.
type ContactNotifier interface {
	SendContact(ctx context.Context, m mailer.ContactMessage) mailer.Result
}

// PageController serves the static pages and the contact form.
type PageController struct {
	view     *View
	notifier ContactNotifier
}

// NewPageController creates a PageController.
func NewPageController(view *View, notifier ContactNotifier) *PageController {
	return &PageController{view: view, notifier: notifier}
}

func (pc *PageController) About(ctx *gin.Context) {
	pc.view.Render(ctx, http.StatusOK, "about.html", "About", nil)
}

func (pc *PageController) ContactForm(ctx *gin.Context) {
	pc.renderContact(ctx, &forms.ContactForm{}, nil, false)
}

// Contact sends the message to the site owner. The confirmation page is shown whatever
// the delivery outcome; only the flash tells success from failure.
func (pc *PageController) Contact(ctx *gin.Context) {
	var form forms.ContactForm
	if errs := forms.Bind(ctx, &form); len(errs) > 0 {
		pc.renderContact(ctx, &form, errs, false)
		return
	}

	res := pc.notifier.SendContact(ctx.Request.Context(), mailer.ContactMessage{
		Name:    form.Name,
		Email:   form.Email,
		Phone:   form.Phone,
		Message: form.Message,
	})
	if res.Delivered() {
		middleware.AddFlash(ctx, middleware.FlashSuccess, "Successfully Sent Your Message")
	} else {
		middleware.AddFlash(ctx, middleware.FlashDanger, "Something Went Wrong")
	}
	pc.renderContact(ctx, &forms.ContactForm{}, nil, true)
}

func (pc *PageController) renderContact(ctx *gin.Context, form *forms.ContactForm, errs forms.Errors, sent bool) {
	pc.view.Render(ctx, http.StatusOK, "contact.html", "Contact", gin.H{
		"Form":    form,
		"Errors":  errs,
		"MsgSent": sent,
	})
}
