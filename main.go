// Headless Learn@Home client: restores or opens a session, keeps the
// realtime connection alive and logs every notification as it lands.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/learnhome/client/internal/api"
	"github.com/learnhome/client/internal/config"
	"github.com/learnhome/client/internal/notify"
	"github.com/learnhome/client/internal/session"
	"github.com/learnhome/client/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env")
	}
	cfg := config.LoadClient()

	stores := store.New()
	presenter := notify.NewPresenter()
	presenter.Observe(func(area notify.Area, n notify.Notification) {
		if n == nil {
			log.Printf("[%s] dismissed", area)
			return
		}
		log.Printf("[%s] %#v", area, n)
	})

	apiClient := api.NewClient(cfg.ServerURL)
	tokens := session.NewTokenStore(cfg.TokenPath)
	sess := session.New(apiClient, stores, presenter, tokens, cfg.WSURL)

	done := make(chan struct{})
	sess.OnLogout(func(reason string) {
		log.Printf("session ended: %s", reason)
		close(done)
	})

	ctx := context.Background()
	restored, err := sess.Restore(ctx)
	if err != nil {
		log.Printf("restore: %v", err)
	}
	if !restored {
		if cfg.Username == "" || cfg.Password == "" {
			log.Fatal("no stored session and no LEARNHOME_USERNAME/LEARNHOME_PASSWORD set")
		}
		if res := sess.Login(ctx, cfg.Username, cfg.Password); !res.Valid {
			log.Fatalf("login failed: %s", res.Message)
		}
	}
	log.Printf("connected as %s (%s)", sess.User().Username, sess.User().Role)

	// Warm the local state the way the web client does on page load.
	sess.RefreshContacts(ctx)
	sess.RefreshDemands(ctx)
	sess.RefreshTasks(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
		sess.Logout()
		<-done
	case <-done:
	}
}
