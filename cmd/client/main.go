package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"storeratings/internal/admin"
	"storeratings/internal/api"
	"storeratings/internal/apierr"
	"storeratings/internal/owner"
	"storeratings/internal/screen"
	"storeratings/internal/session"
	"storeratings/internal/stores"
)

// app holds the terminal client's state: the transport, the current
// session, and at most one live screen per role.
type app struct {
	client *api.Client
	sess   *session.Session

	userScreen  *stores.Screen
	ownerScreen *owner.Screen
	adminScreen *admin.Screen
}

func main() {
	a := &app{client: api.New(env("API_URL", "http://localhost:8080"))}

	fmt.Println("storeratings client — type 'help' for commands")
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			return
		}
		args := strings.Fields(sc.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			return
		}
		a.run(context.Background(), args[0], args[1:])
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) {
	switch cmd {
	case "help":
		printHelp()
	case "login":
		a.login(ctx, args)
	case "signup":
		a.signup(ctx, args)
	case "logout":
		a.logout()
	case "stores", "owner", "admin", "refresh":
		a.show(ctx, cmd)
	case "rate":
		a.rate(ctx, args)
	case "addstore":
		a.addStore(ctx, args)
	case "promote":
		a.promote(ctx, args)
	default:
		fmt.Println("unknown command; try 'help'")
	}
}

func printHelp() {
	fmt.Println(`  login <email> <password>
  signup <name> <email> <password> [role]
  logout
  stores | owner | admin    show the role dashboard
  refresh                   reload the current role dashboard
  rate <store-id> <1-5>     submit a rating (user role)
  addstore <name> <email> <owner-id> [address]
  promote <user-id> <role>  change a user's role (admin role)
  quit`)
}

func (a *app) login(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: login <email> <password>")
		return
	}
	sess, errs, err := session.Login(ctx, a.client, args[0], args[1])
	if a.reportAuth(errs, err) {
		return
	}
	a.establish(ctx, sess)
}

func (a *app) signup(ctx context.Context, args []string) {
	if len(args) < 3 {
		fmt.Println("usage: signup <name> <email> <password> [role]")
		return
	}
	role := api.RoleUser
	if len(args) > 3 {
		role = api.Role(args[3])
	}
	sess, errs, err := session.Signup(ctx, a.client, api.SignupRequest{
		Name: args[0], Email: args[1], Password: args[2], Role: role,
	})
	if a.reportAuth(errs, err) {
		return
	}
	a.establish(ctx, sess)
}

func (a *app) reportAuth(errs map[string]string, err error) bool {
	if len(errs) > 0 {
		for field, msg := range errs {
			fmt.Printf("  %s: %s\n", field, msg)
		}
		return true
	}
	if err != nil {
		fmt.Println(summaryOf(err, "Login failed"))
		return true
	}
	return false
}

func (a *app) establish(ctx context.Context, sess *session.Session) {
	a.sess = sess
	fmt.Printf("logged in as %s (%s)\n", sess.User.Email, sess.User.Role)
	a.show(ctx, sess.Home())
}

func (a *app) logout() {
	a.closeScreens()
	session.Logout(a.client, a.sess)
	a.sess = nil
	fmt.Println("logged out")
}

func (a *app) closeScreens() {
	if a.userScreen != nil {
		a.userScreen.Close()
		a.userScreen = nil
	}
	if a.ownerScreen != nil {
		a.ownerScreen.Close()
		a.ownerScreen = nil
	}
	if a.adminScreen != nil {
		a.adminScreen.Close()
		a.adminScreen = nil
	}
}

func (a *app) show(ctx context.Context, which string) {
	if which == "refresh" && a.sess != nil {
		which = a.sess.Home()
	}
	switch which {
	case "user", "stores":
		if a.userScreen == nil {
			a.userScreen = stores.NewScreen(a.client, a.sess)
		}
		a.userScreen.Load(ctx)
		a.renderStores()
	case "owner":
		if a.ownerScreen == nil {
			a.ownerScreen = owner.NewScreen(a.client, a.sess)
		}
		a.ownerScreen.Load(ctx)
		a.renderOwner()
	case "admin":
		if a.adminScreen == nil {
			a.adminScreen = admin.NewScreen(a.client, a.sess)
		}
		a.adminScreen.Load(ctx)
		a.renderAdmin()
	}
}

func (a *app) rate(ctx context.Context, args []string) {
	if a.userScreen == nil {
		fmt.Println("open the stores screen first")
		return
	}
	if len(args) != 2 {
		fmt.Println("usage: rate <store-id> <1-5>")
		return
	}
	storeID, _ := strconv.ParseInt(args[0], 10, 64)
	rating, _ := strconv.Atoi(args[1])
	if err := a.userScreen.Rate(ctx, storeID, rating); err != nil {
		if stores.IsInFlightErr(err) {
			fmt.Println("a rating for this store is still being saved")
			return
		}
		fmt.Println(summaryOf(err, "Failed to submit rating"))
		return
	}
	a.renderStores()
}

func (a *app) addStore(ctx context.Context, args []string) {
	if a.adminScreen == nil {
		fmt.Println("open the admin screen first")
		return
	}
	if len(args) < 3 {
		fmt.Println("usage: addstore <name> <email> <owner-id> [address]")
		return
	}
	form := admin.NewStoreForm{Name: args[0], Email: args[1], OwnerID: args[2]}
	if len(args) > 3 {
		form.Address = strings.Join(args[3:], " ")
	}
	if err := a.adminScreen.CreateStore(ctx, form); err != nil {
		if err == screen.ErrValidation {
			for field, msg := range a.adminScreen.FieldErrors() {
				fmt.Printf("  %s: %s\n", field, msg)
			}
			return
		}
		fmt.Println(summaryOf(err, "Failed to create store"))
		for field, msg := range a.adminScreen.FieldErrors() {
			fmt.Printf("  %s: %s\n", field, msg)
		}
		return
	}
	a.renderAdmin()
}

func (a *app) promote(ctx context.Context, args []string) {
	if a.adminScreen == nil {
		fmt.Println("open the admin screen first")
		return
	}
	if len(args) != 2 {
		fmt.Println("usage: promote <user-id> <role>")
		return
	}
	userID, _ := strconv.ParseInt(args[0], 10, 64)
	if err := a.adminScreen.UpdateRole(ctx, userID, api.Role(args[1])); err != nil {
		fmt.Println(summaryOf(err, "Failed to update user role"))
		return
	}
	a.renderAdmin()
}

func (a *app) renderStores() {
	s := a.userScreen
	if !renderPhase(s.Phase(), s.Err()) {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tAVG\tRATINGS\tYOURS")
	for _, st := range s.Data() {
		busy := ""
		if s.Submitting(st.ID) {
			busy = " (saving...)"
		}
		fmt.Fprintf(w, "%d\t%s\t%.1f\t%d\t%d%s\n",
			st.ID, st.Name, st.AvgRating, st.RatingsCount, st.UserRating, busy)
	}
	w.Flush()
}

func (a *app) renderOwner() {
	s := a.ownerScreen
	if !renderPhase(s.Phase(), s.Err()) {
		return
	}
	for _, st := range s.Data() {
		fmt.Printf("%s — avg %.1f over %d ratings\n", st.StoreName, st.AvgRating, st.RatingsCount)
		if r := s.Recent(st.StoreID); r != nil {
			fmt.Printf("  recent: %d★ by %s (%s)\n", r.Rating, r.Name, r.CreatedAt.Format("2006-01-02"))
		}
		for _, rt := range st.Raters {
			fmt.Printf("  %d★  %s  %s\n", rt.Rating, rt.Name, rt.Email)
		}
	}
}

func (a *app) renderAdmin() {
	s := a.adminScreen
	if !renderPhase(s.Phase(), s.Err()) {
		return
	}
	d := s.Data()
	fmt.Printf("users: %d  stores: %d  ratings: %d\n",
		d.Stats.UsersCount, d.Stats.StoresCount, d.Stats.RatingsCount)

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE")
	for _, u := range d.Users {
		busy := ""
		if s.Updating(u.ID) {
			busy = " (updating...)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s%s\n", u.ID, u.Name, u.Email, u.Role, busy)
	}
	fmt.Fprintln(w, "\nID\tSTORE\tEMAIL\tAVG\tOWNER")
	for _, st := range d.Stores {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.1f\t%d\n", st.ID, st.Name, st.Email, st.AvgRating, st.OwnerID)
	}
	w.Flush()
}

func renderPhase(p screen.Phase, n *apierr.Normalized) bool {
	switch p {
	case screen.Forbidden:
		fmt.Println("forbidden: your role cannot view this screen")
	case screen.Loading:
		fmt.Println("loading...")
	case screen.Failed:
		if n != nil {
			fmt.Println(n.Summary)
		} else {
			fmt.Println("failed to load")
		}
	case screen.Ready:
		return true
	}
	return false
}

func summaryOf(err error, fallback string) string {
	return apierr.FromError(err, fallback).Summary
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
