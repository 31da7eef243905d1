package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/commercekit-labs/merchantsync/internal/content"
	"github.com/commercekit-labs/merchantsync/internal/feed"
	"github.com/commercekit-labs/merchantsync/internal/logger"
)

// watchDebounce coalesces bursts of write events from editors that save in
// several steps.
const watchDebounce = 500 * time.Millisecond

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Manage products in the merchant centre account",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products currently in the merchant centre account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		svc, err := newContentService(ctx)
		if err != nil {
			return err
		}

		products, err := svc.ListProducts(ctx, 0)
		if err != nil {
			return err
		}

		if len(products) == 0 {
			fmt.Println(mutedStyle.Render("No products."))
			return nil
		}

		sort.Slice(products, func(i, j int) bool {
			return products[i].OfferId < products[j].OfferId
		})

		fmt.Println(headerStyle.Render(fmt.Sprintf("%d products", len(products))))
		for _, p := range products {
			price := ""
			if p.Price != nil {
				price = p.Price.Value + " " + p.Price.Currency
			}
			fmt.Printf("  %s  %s  %s\n", p.OfferId, p.Title, mutedStyle.Render(price))
		}
		return nil
	},
}

var productsPushCmd = &cobra.Command{
	Use:   "push <feed.toml>",
	Short: "Push a product feed to the merchant centre account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := newContentService(ctx)
		if err != nil {
			return err
		}
		return pushFeed(ctx, svc, args[0])
	},
}

var productsWatchCmd = &cobra.Command{
	Use:   "watch <feed.toml>",
	Short: "Watch a feed file and push on every change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := newContentService(ctx)
		if err != nil {
			return err
		}

		feedPath := args[0]
		if err := pushFeed(ctx, svc, feedPath); err != nil {
			return err
		}
		return watchFeed(ctx, svc, feedPath)
	},
}

// pushFeed loads, validates and uploads one feed file.
func pushFeed(ctx context.Context, svc *content.Service, path string) error {
	f, err := feed.Load(path)
	if err != nil {
		return err
	}

	result, err := svc.PushProducts(ctx, f.ContentProducts())
	if result != nil {
		report(result)
	}
	return err
}

// report prints a push summary.
func report(result *content.PushResult) {
	fmt.Printf("%s %d products pushed\n", successStyle.Render("✓"), result.Inserted)
	if len(result.Failed) == 0 {
		return
	}
	fmt.Printf("%s %d products rejected:\n", errorStyle.Render("✗"), len(result.Failed))
	for offerID, err := range result.Failed {
		fmt.Printf("  %s: %v\n", offerID, err)
	}
}

// watchFeed blocks, re-pushing the feed whenever the file changes.
// Watches the parent directory: editors typically replace the file on save,
// which drops a watch set on the file itself.
func watchFeed(ctx context.Context, svc *content.Service, feedPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(feedPath)
	if err != nil {
		return fmt.Errorf("resolve feed path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watch feed directory: %w", err)
	}

	fmt.Println(mutedStyle.Render("Watching " + feedPath + " (ctrl-c to stop)"))

	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Debugf("feed changed: %s", event)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case <-pending:
			if err := pushFeed(ctx, svc, feedPath); err != nil {
				// Keep watching: a half-saved feed should not kill the loop.
				fmt.Printf("%s %v\n", errorStyle.Render("✗"), err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("watch error: %v", err)
		}
	}
}

func init() {
	productsCmd.AddCommand(productsListCmd, productsPushCmd, productsWatchCmd)
	rootCmd.AddCommand(productsCmd)
}
