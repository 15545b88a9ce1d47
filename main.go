package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/patrickmn/go-cache"
	"github.com/username/cancat/client/src/api"
	"github.com/username/cancat/client/src/config"
	"github.com/username/cancat/client/src/controller"
	"github.com/username/cancat/client/src/logger"
	"github.com/username/cancat/client/src/render"
	"github.com/username/cancat/client/src/services"
	"github.com/username/cancat/client/src/session"
)

// signInNavigator records the forced navigation to sign-in; the command loop
// consumes it and re-prompts for credentials.
type signInNavigator struct {
	needSignIn atomic.Bool
}

func (n *signInNavigator) GotoSignIn() {
	n.needSignIn.Store(true)
}

func (n *signInNavigator) consume() bool {
	return n.needSignIn.Swap(false)
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("CanCat transaction client starting...")

	sharedUserID := flag.Int64("shared", 0, "view this user's shared transactions instead of your own (read-only)")
	flag.Parse()

	sess := session.New(config.Cfg.TokenPath)
	client := api.NewClient(
		config.Cfg.APIBaseURL, sess,
		config.Cfg.RequestTimeout,
		config.Cfg.RateLimitInterval, config.Cfg.RateLimitBurst,
	)
	catalogCache := cache.New(config.Cfg.CatalogCacheTTL, config.Cfg.CatalogCacheCleanup)
	catalog := services.NewCatalogService(client, catalogCache)

	nav := &signInNavigator{}
	ctrl := controller.New(client, catalog, sess, nav, *sharedUserID)

	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	if !sess.Authenticated() {
		if err := promptSignIn(ctx, reader, client); err != nil {
			logger.L.Error("Sign-in failed", "error", err)
			os.Exit(1)
		}
	}
	if sess.ExpiresSoon(config.Cfg.TokenExpiryLeeway) {
		fmt.Println("note: your session is about to expire; the server may rotate or reject it")
	}

	if err := ctrl.LoadPage(ctx, 1); err != nil {
		fmt.Println("error:", err)
	}
	if err := ctrl.RefreshCatalogs(ctx); err != nil {
		fmt.Println("error:", err)
	}

	runLoop(ctx, reader, ctrl, client, nav)
}

func promptSignIn(ctx context.Context, reader *bufio.Reader, client *api.Client) error {
	fmt.Print("email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	fmt.Print("password: ")
	password, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	return client.SignIn(ctx, strings.TrimSpace(email), strings.TrimSpace(password))
}

func runLoop(ctx context.Context, reader *bufio.Reader, ctrl *controller.Controller, client *api.Client, nav *signInNavigator) {
	for {
		render.WriteTransactions(os.Stdout, ctrl.Page(), ctrl.IsSelected, ctrl.Shared())
		fmt.Printf("page %d | next: %s | commands: n p edit <id> toggle <id> <pandb|flag|hidden|m> tag <id> rules delrule <id> sel <id> selall selnone q\n",
			ctrl.Page().PageNumber, enabledWord(ctrl.CanGoNext()))
		fmt.Print("> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "q", "quit":
			return
		case "n":
			if !ctrl.CanGoNext() {
				fmt.Println("next page is disabled: no further records")
				continue
			}
			reportErr(ctrl.NextPage(ctx))
		case "p":
			reportErr(ctrl.PreviousPage(ctx))
		case "edit":
			runEdit(ctx, reader, ctrl, fields)
		case "toggle":
			if len(fields) != 3 {
				fmt.Println("usage: toggle <id> <pandb|flag|hidden|m>")
				continue
			}
			id, ok := parseID(fields[1])
			if !ok {
				continue
			}
			reportErr(ctrl.ToggleRowFlag(ctx, id, fields[2]))
		case "tag":
			runTagDialog(ctx, reader, ctrl, fields)
		case "rules":
			render.WriteRules(os.Stdout, ctrl.RuleCatalog())
		case "delrule":
			if len(fields) != 2 {
				fmt.Println("usage: delrule <id>")
				continue
			}
			id, ok := parseID(fields[1])
			if !ok {
				continue
			}
			reportErr(ctrl.DeleteRule(ctx, id))
		case "sel":
			if len(fields) != 2 {
				fmt.Println("usage: sel <id>")
				continue
			}
			if id, ok := parseID(fields[1]); ok {
				ctrl.ToggleRow(id)
			}
		case "selall":
			ctrl.SelectAll(true)
		case "selnone":
			ctrl.SelectAll(false)
		default:
			fmt.Println("unknown command:", fields[0])
		}

		if nav.consume() {
			fmt.Println("your session has expired, please sign in again")
			if err := promptSignIn(ctx, reader, client); err != nil {
				fmt.Println("error:", err)
				return
			}
			reportErr(ctrl.LoadPage(ctx, 1))
			reportErr(ctrl.RefreshCatalogs(ctx))
		}
	}
}

func runEdit(ctx context.Context, reader *bufio.Reader, ctrl *controller.Controller, fields []string) {
	if ctrl.Shared() {
		fmt.Println("shared views are read-only")
		return
	}
	if len(fields) != 2 {
		fmt.Println("usage: edit <id>")
		return
	}
	id, ok := parseID(fields[1])
	if !ok {
		return
	}
	if err := ctrl.BeginLabelEdit(id); err != nil {
		fmt.Println("error:", err)
		return
	}
	_, draft, _, _ := ctrl.EditState()

	fmt.Printf("label [%s]: ", draft)
	line, err := reader.ReadString('\n')
	if err != nil {
		ctrl.CancelLabelEdit()
		return
	}
	if text := strings.TrimSuffix(line, "\n"); text != "" {
		ctrl.SetDraftLabel(text)
	}
	ctrl.SetScopeFlags(controller.ScopeFlags{
		ReplaceAllWithSameLabel:   promptYesNo(reader, "update all transactions with this label?"),
		ApplyToFutureTransactions: promptYesNo(reader, "apply to future transactions?"),
	})
	if err := ctrl.SaveLabelEdit(ctx); err != nil {
		// Edit state survives the failure; a second save retries as-is.
		fmt.Println("error:", err)
	}
}

func runTagDialog(ctx context.Context, reader *bufio.Reader, ctrl *controller.Controller, fields []string) {
	if ctrl.Shared() {
		fmt.Println("shared views are read-only")
		return
	}
	if len(fields) != 2 {
		fmt.Println("usage: tag <id>")
		return
	}
	id, ok := parseID(fields[1])
	if !ok {
		return
	}
	ctrl.OpenTagDialog(id)
	defer ctrl.CloseTagDialog()

	for ctrl.Dialog().Open {
		fmt.Println("tags (search with /<text>, pick with <tagId>, create with +<name>, close with .):")
		for _, tag := range ctrl.FilterTagCatalog(ctrl.Dialog().SearchQuery) {
			fmt.Printf("  %d\t%s\n", tag.ID, tag.Name)
		}
		fmt.Print("tag> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		input := strings.TrimSpace(line)
		switch {
		case input == ".":
			return
		case strings.HasPrefix(input, "/"):
			ctrl.SetTagSearch(strings.TrimPrefix(input, "/"))
		case strings.HasPrefix(input, "+"):
			ctrl.SetNewTagDraft(strings.TrimPrefix(input, "+"))
			if err := ctrl.CreateAndAssignTag(ctx, ctrl.Dialog().NewTagDraft); err != nil {
				fmt.Println("error:", err)
			}
		default:
			tagID, ok := parseID(input)
			if !ok {
				continue
			}
			if err := ctrl.AssignTag(ctx, id, tagID); err != nil {
				fmt.Println("error:", err)
			}
		}
	}
}

func promptYesNo(reader *bufio.Reader, question string) bool {
	fmt.Printf("%s (y/N): ", question)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		fmt.Println("invalid id:", s)
		return 0, false
	}
	return id, true
}

func enabledWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func reportErr(err error) {
	if err != nil {
		fmt.Println("error:", err)
	}
}
