// Command reconcile recomputes stored comment counters from the comment
// store. Run it after a COUNTER_STALE response or on a schedule.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"talksphere/internal/config"
	"talksphere/internal/service"
	transport "talksphere/internal/transport/http"
)

func main() {
	postID := flag.String("post", "", "reconcile a single post id (default: every post)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	repos, closeRepos, err := transport.OpenRepositories(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer closeRepos()

	reconciler := service.NewReconcileService(repos.Posts)

	if *postID != "" {
		count, err := reconciler.ReconcilePost(ctx, *postID)
		if err != nil {
			log.Fatalf("Reconcile %s failed: %v", *postID, err)
		}
		log.Printf("Post %s: commentCount=%d", *postID, count)
		return
	}

	n, err := reconciler.ReconcileAll(ctx)
	if err != nil {
		log.Fatalf("Reconcile failed after %d posts: %v", n, err)
	}
	log.Printf("Reconciled %d posts", n)
}
