package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/fitpulse/fitpulse-go/config"
	"github.com/fitpulse/fitpulse-go/internal/bootstrap"
	"github.com/fitpulse/fitpulse-go/internal/client"
	"github.com/fitpulse/fitpulse-go/internal/guard"
	"github.com/fitpulse/fitpulse-go/internal/models"
	"github.com/fitpulse/fitpulse-go/internal/session"
	"github.com/fitpulse/fitpulse-go/internal/store"
)

func main() {
	// Load configuration
	configPath := filepath.Join(".", "config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer app.Close()

	if err := app.Run(context.Background(), os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: fitpulse <command> [flags]

Commands:
  login     Sign in with username and password
  register  Create a new account
  me        Show the current user profile
  update    Update profile fields
  status    Show session status and token claims
  visit     Evaluate the route guard for a path
  logout    Clear the stored session`)
}

// App wires the client components together. The session is the single
// shared state instance; everything else takes it by reference.
type App struct {
	Config      *config.Config
	Store       store.Store
	Session     *session.Session
	Client      *client.Client
	Guard       *guard.Guard
	Initializer *bootstrap.Initializer
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config) (*App, error) {
	cipher, err := store.NewCipher(cfg.CredentialsKey)
	if err != nil {
		return nil, err
	}

	st, err := store.NewSQLiteStore(cfg.CredentialsPath, cipher)
	if err != nil {
		return nil, err
	}

	sess := session.NewSession(st, cfg.RefreshTokenTTL, cfg.ExpirySoonWindow)
	cl := client.NewClient(cfg.APIBaseURL, time.Duration(cfg.HTTPTimeout)*time.Second, sess)

	return &App{
		Config:      cfg,
		Store:       st,
		Session:     sess,
		Client:      cl,
		Guard:       guard.NewGuard(sess, cl, cfg.ProtectedRoutes, cfg.AuthPages),
		Initializer: bootstrap.NewInitializer(sess, cl),
	}, nil
}

// Close releases the credential store and cancels any pending refresh
func (a *App) Close() {
	a.Initializer.Stop()
	if err := a.Store.Close(); err != nil {
		log.Printf("Failed to close credential store: %v", err)
	}
}

// Run dispatches a CLI command after restoring the session
func (a *App) Run(ctx context.Context, command string, args []string) error {
	if err := a.Initializer.Run(ctx); err != nil {
		return err
	}

	switch command {
	case "login":
		return a.runLogin(ctx, args)
	case "register":
		return a.runRegister(ctx, args)
	case "me":
		return a.runMe(ctx)
	case "update":
		return a.runUpdate(ctx, args)
	case "status":
		return a.runStatus()
	case "visit":
		return a.runVisit(ctx, args)
	case "logout":
		return a.runLogout(ctx)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *App) runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "account username")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, err := a.Client.Login(ctx, &models.LoginCredentials{
		Username: *username,
		Password: *password,
	})
	if err != nil {
		return err
	}

	if user := a.Session.User(); user != nil {
		fmt.Printf("Logged in as %s %s <%s>\n", user.Name, user.Surname, user.Email)
	}
	return nil
}

func (a *App) runRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "first name")
	surname := fs.String("surname", "", "last name")
	username := fs.String("username", "", "account username")
	password := fs.String("password", "", "account password")
	email := fs.String("email", "", "email address")
	role := fs.String("role", "", "account role")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resp, err := a.Client.Register(ctx, &models.RegisterCredentials{
		Name:     *name,
		Surname:  *surname,
		Username: *username,
		Password: *password,
		Email:    *email,
		Role:     *role,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Registered %s (%s)\n", resp.Username, resp.Role)
	return nil
}

func (a *App) runMe(ctx context.Context) error {
	user, err := a.Client.FetchUser(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Name:    %s %s\n", user.Name, user.Surname)
	fmt.Printf("Email:   %s\n", user.Email)
	if user.Gender != "" {
		fmt.Printf("Gender:  %s\n", user.Gender)
	}
	if user.Height > 0 {
		fmt.Printf("Height:  %.1f\n", user.Height)
	}
	if user.Weight > 0 {
		fmt.Printf("Weight:  %.1f\n", user.Weight)
	}
	return nil
}

func (a *App) runUpdate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	name := fs.String("name", "", "first name")
	surname := fs.String("surname", "", "last name")
	email := fs.String("email", "", "email address")
	gender := fs.String("gender", "", "MALE, FEMALE or OTHER")
	height := fs.Float64("height", 0, "height in cm")
	weight := fs.Float64("weight", 0, "weight in kg")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Only flags the caller actually set go into the partial update
	payload := &models.UpdateUserPayload{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			payload.Name = name
		case "surname":
			payload.Surname = surname
		case "email":
			payload.Email = email
		case "gender":
			g := models.Gender(*gender)
			payload.Gender = &g
		case "height":
			payload.Height = height
		case "weight":
			payload.Weight = weight
		}
	})

	user, err := a.Client.UpdateUser(ctx, payload)
	if err != nil {
		return err
	}

	fmt.Printf("Updated profile for %s <%s>\n", user.Name, user.Email)
	return nil
}

func (a *App) runStatus() error {
	if !a.Session.IsAuthenticated() {
		fmt.Println("Not authenticated")
		return nil
	}

	fmt.Println("Authenticated: yes")
	if expiresAt := a.Session.ExpiresAt(); !expiresAt.IsZero() {
		fmt.Printf("Expires at:    %s\n", expiresAt.Format(time.RFC3339))
	} else {
		fmt.Println("Expires at:    unknown")
	}
	fmt.Printf("Expiring soon: %v\n", a.Session.WillExpireSoon())

	// Display-only claim decode; the server is the one verifying signatures
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(a.Session.AccessToken(), claims); err == nil {
		if sub, ok := claims["sub"].(string); ok {
			fmt.Printf("Subject:       %s\n", sub)
		}
		if exp, ok := claims["exp"].(float64); ok {
			fmt.Printf("Token exp:     %s\n", time.Unix(int64(exp), 0).Format(time.RFC3339))
		}
	}
	return nil
}

func (a *App) runVisit(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: fitpulse visit <path>")
	}

	decision := a.Guard.Evaluate(ctx, args[0])
	if decision.Allow {
		fmt.Printf("Allowed: %s\n", args[0])
	} else {
		fmt.Printf("Redirect: %s -> %s\n", args[0], decision.RedirectTo)
	}
	return nil
}

func (a *App) runLogout(ctx context.Context) error {
	if err := a.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}
