package main

import (
	"github.com/cppla/bloghub/config"
	"github.com/cppla/bloghub/mailer"
	"github.com/cppla/bloghub/models"
	"github.com/cppla/bloghub/repository"
	"github.com/cppla/bloghub/routes"
	"github.com/cppla/bloghub/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()
	for _, w := range cfg.Warnings() {
		utils.Sugar.Warn(w)
	}

	db := config.InitDatabase(&models.User{}, &models.Post{}, &models.Comment{})
	store := repository.NewGormStore(db, cfg.AdminEmails)

	// Redis is optional; revoked sessions are tracked in memory without it.
	blacklist := utils.NewTokenBlacklist(utils.NewRedis(cfg))

	// A missing mail setup leaves the contact form working; every send reports a failure.
	sender, err := mailer.NewSender(cfg)
	if err != nil {
		utils.Sugar.Warnf("mail delivery disabled: %v", err)
	}
	notifier := mailer.NewNotifier(sender, cfg.ContactRecipient, cfg.MailTimeout(), utils.Logger)

	r := routes.SetupRouter(cfg, routes.Deps{
		Store:     store,
		Blacklist: blacklist,
		Notifier:  notifier,
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
