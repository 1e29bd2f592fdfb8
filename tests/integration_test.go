package tests

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cryptodash/coin-backend/middleware"
	"github.com/cryptodash/coin-backend/services"
	"github.com/cryptodash/coin-backend/shared"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	_ "github.com/lib/pq"
)

// IntegrationTestSuite wires the user and favorite services against a
// real Postgres instance.
type IntegrationTestSuite struct {
	db        *sql.DB
	users     *services.UserService
	favorites *services.FavoriteService
	tokens    *middleware.TokenIssuer
}

// SetupIntegrationTestSuite initializes the test environment, skipping
// when no database is reachable.
func SetupIntegrationTestSuite(t *testing.T) *IntegrationTestSuite {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://localhost/coin_backend_test?sslmode=disable"
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Skipf("Skipping integration tests - database not available: %v", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		t.Skipf("Skipping integration tests - database ping failed: %v", err)
		return nil
	}

	return &IntegrationTestSuite{
		db:        db,
		users:     services.NewUserService(db),
		favorites: services.NewFavoriteService(db, nil),
		tokens:    middleware.NewTokenIssuer("integration-test-secret"),
	}
}

// TeardownIntegrationTestSuite cleans up the test environment
func (suite *IntegrationTestSuite) TeardownIntegrationTestSuite() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *IntegrationTestSuite) createTestUser(t *testing.T) int {
	t.Helper()

	email := fmt.Sprintf("test-%s@example.com", uuid.NewString())
	user, err := suite.users.Signup(context.Background(), "Test", "User", email, "correct-horse-battery")
	if err != nil {
		t.Fatalf("test user signup failed: %v", err)
	}

	t.Cleanup(func() {
		suite.db.Exec("DELETE FROM users WHERE id = $1", user.ID)
	})

	return user.ID
}

func TestSignupLoginRoundTrip(t *testing.T) {
	suite := SetupIntegrationTestSuite(t)
	if suite == nil {
		return
	}
	defer suite.TeardownIntegrationTestSuite()

	ctx := context.Background()
	email := fmt.Sprintf("roundtrip-%s@example.com", uuid.NewString())

	user, err := suite.users.Signup(ctx, "Grace", "Hopper", email, "s3cure-password")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	defer suite.db.Exec("DELETE FROM users WHERE id = $1", user.ID)

	if user.ID == 0 {
		t.Error("expected a database-assigned user id")
	}

	loggedIn, err := suite.users.Login(ctx, email, "s3cure-password")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Errorf("login returned user %d, expected %d", loggedIn.ID, user.ID)
	}

	token, err := suite.tokens.GenerateToken(loggedIn)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	claims, err := suite.tokens.ParseToken(token)
	if err != nil {
		t.Fatalf("token parse failed: %v", err)
	}
	if claims.Email != email {
		t.Errorf("token email claim %q, expected %q", claims.Email, email)
	}

	if _, err := suite.users.Login(ctx, email, "wrong-password"); err == nil {
		t.Error("expected login with wrong password to fail")
	} else if shared.CategoryOf(err) != shared.ErrorCategoryAuthentication {
		t.Errorf("expected authentication category, got %q", shared.CategoryOf(err))
	}
}

func TestDuplicateSignupReportsConflict(t *testing.T) {
	suite := SetupIntegrationTestSuite(t)
	if suite == nil {
		return
	}
	defer suite.TeardownIntegrationTestSuite()

	ctx := context.Background()
	email := fmt.Sprintf("dup-%s@example.com", uuid.NewString())

	user, err := suite.users.Signup(ctx, "First", "Signup", email, "password-one")
	if err != nil {
		t.Fatalf("initial signup failed: %v", err)
	}
	defer suite.db.Exec("DELETE FROM users WHERE id = $1", user.ID)

	_, err = suite.users.Signup(ctx, "Second", "Signup", email, "password-two")
	if err == nil {
		t.Fatal("expected duplicate signup to fail")
	}
	if shared.CategoryOf(err) != shared.ErrorCategoryConflict {
		t.Errorf("expected conflict category, got %q", shared.CategoryOf(err))
	}
}

// TestFavoriteLifecycleProperties checks add/remove invariants for
// arbitrary coin identifiers.
func TestFavoriteLifecycleProperties(t *testing.T) {
	suite := SetupIntegrationTestSuite(t)
	if suite == nil {
		return
	}
	defer suite.TeardownIntegrationTestSuite()

	userID := suite.createTestUser(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	identifierGen := gen.RegexMatch(`[a-z][a-z0-9-]{2,20}`)

	properties.Property("adding the same favorite twice yields a conflict and one row", prop.ForAll(
		func(symbol, slug string) bool {
			defer suite.db.Exec("DELETE FROM favorite_coin WHERE user_id = $1", userID)

			if err := suite.favorites.Add(ctx, userID, "Coin "+symbol, symbol, slug); err != nil {
				t.Logf("first add failed: %v", err)
				return false
			}

			err := suite.favorites.Add(ctx, userID, "Coin "+symbol, symbol, slug)
			if shared.CategoryOf(err) != shared.ErrorCategoryConflict {
				t.Logf("second add expected conflict, got %v", err)
				return false
			}

			var count int
			if err := suite.db.QueryRow(
				"SELECT COUNT(*) FROM favorite_coin WHERE user_id = $1 AND symbol = $2 AND slug = $3",
				userID, symbol, slug,
			).Scan(&count); err != nil {
				t.Logf("count query failed: %v", err)
				return false
			}
			return count == 1
		},
		identifierGen, identifierGen,
	))

	properties.Property("removing an added favorite succeeds exactly once", prop.ForAll(
		func(symbol, slug string) bool {
			defer suite.db.Exec("DELETE FROM favorite_coin WHERE user_id = $1", userID)

			if err := suite.favorites.Add(ctx, userID, "Coin "+symbol, symbol, slug); err != nil {
				t.Logf("add failed: %v", err)
				return false
			}

			if err := suite.favorites.Remove(ctx, userID, symbol, slug); err != nil {
				t.Logf("first remove failed: %v", err)
				return false
			}

			err := suite.favorites.Remove(ctx, userID, symbol, slug)
			if shared.CategoryOf(err) != shared.ErrorCategoryNotFound {
				t.Logf("second remove expected not_found, got %v", err)
				return false
			}

			listed, err := suite.favorites.List(ctx, userID)
			if err != nil {
				t.Logf("list failed: %v", err)
				return false
			}
			return len(listed) == 0
		},
		identifierGen, identifierGen,
	))

	properties.TestingRun(t)
}

func TestGetFavoriteDetailsZeroFavoritesSkipsProvider(t *testing.T) {
	suite := SetupIntegrationTestSuite(t)
	if suite == nil {
		return
	}
	defer suite.TeardownIntegrationTestSuite()

	userID := suite.createTestUser(t)

	// The suite's favorite service carries no market service at all, so
	// any provider call would panic; a clean empty result proves the
	// zero-favorites short circuit.
	details, err := suite.favorites.GetFavoriteDetails(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if details == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(details) != 0 {
		t.Errorf("expected no details for a user without favorites, got %d", len(details))
	}
}

func TestGetFavoriteDetailsDropsDelistedCoins(t *testing.T) {
	suite := SetupIntegrationTestSuite(t)
	if suite == nil {
		return
	}
	defer suite.TeardownIntegrationTestSuite()

	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		if got := r.URL.Query().Get("slug"); got != "bitcoin,ethereum,defunct-coin" {
			t.Errorf("unexpected slug param: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/info":
			// The provider no longer knows defunct-coin.
			w.Write([]byte(`{"data":{
				"1":{"id":1,"name":"Bitcoin","symbol":"BTC","slug":"bitcoin"},
				"1027":{"id":1027,"name":"Ethereum","symbol":"ETH","slug":"ethereum"}
			}}`))
		case "/quotes/latest":
			w.Write([]byte(`{"data":{
				"1":{"id":1,"slug":"bitcoin","cmc_rank":1,"quote":{"USD":{"price":64000.5}}},
				"1027":{"id":1027,"slug":"ethereum","cmc_rank":2,"quote":{"USD":{"price":3100.25}}}
			}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	market := services.NewMarketServiceWithConfig("k1", "k2", shared.ServiceConfig{
		BaseURL:            server.URL,
		APIKeyHeader:       "X-CMC_PRO_API_KEY",
		HTTPRequestTimeout: 5 * time.Second,
		RequestRateLimit:   time.Millisecond,
		MaxRetryAttempts:   0,
	})
	favorites := services.NewFavoriteService(suite.db, market)

	userID := suite.createTestUser(t)
	ctx := context.Background()

	coins := []struct{ name, symbol, slug string }{
		{"Bitcoin", "BTC", "bitcoin"},
		{"Ethereum", "ETH", "ethereum"},
		{"Defunct", "DFC", "defunct-coin"},
	}
	for _, coin := range coins {
		if err := favorites.Add(ctx, userID, coin.name, coin.symbol, coin.slug); err != nil {
			t.Fatalf("add %s failed: %v", coin.symbol, err)
		}
	}
	defer suite.db.Exec("DELETE FROM favorite_coin WHERE user_id = $1", userID)

	details, err := favorites.GetFavoriteDetails(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := atomic.LoadInt64(&calls); got != 2 {
		t.Errorf("expected exactly 2 provider calls, got %d", got)
	}

	// The delisted favorite is absent; the surviving rows come back in
	// provider-id order.
	if len(details) != 2 {
		t.Fatalf("expected 2 resolved favorites, got %d", len(details))
	}
	if details[0].Slug != "bitcoin" || details[1].Slug != "ethereum" {
		t.Errorf("expected [bitcoin ethereum], got [%s %s]", details[0].Slug, details[1].Slug)
	}

	// The raw list still shows all three rows so the client can remove
	// the dead one.
	listed, err := favorites.List(ctx, userID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 3 {
		t.Errorf("expected raw list to keep all 3 rows, got %d", len(listed))
	}
}

func TestFavoriteListReturnsInsertionOrder(t *testing.T) {
	suite := SetupIntegrationTestSuite(t)
	if suite == nil {
		return
	}
	defer suite.TeardownIntegrationTestSuite()

	userID := suite.createTestUser(t)
	ctx := context.Background()

	coins := []struct{ name, symbol, slug string }{
		{"Bitcoin", "BTC", "bitcoin"},
		{"Ethereum", "ETH", "ethereum"},
		{"Solana", "SOL", "solana"},
	}
	for _, coin := range coins {
		if err := suite.favorites.Add(ctx, userID, coin.name, coin.symbol, coin.slug); err != nil {
			t.Fatalf("add %s failed: %v", coin.symbol, err)
		}
	}
	defer suite.db.Exec("DELETE FROM favorite_coin WHERE user_id = $1", userID)

	listed, err := suite.favorites.List(ctx, userID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != len(coins) {
		t.Fatalf("expected %d favorites, got %d", len(coins), len(listed))
	}
	for i, coin := range coins {
		if listed[i].Slug != coin.slug {
			t.Errorf("position %d: expected %q, got %q", i, coin.slug, listed[i].Slug)
		}
		if listed[i].UserID != userID {
			t.Errorf("position %d: expected user %d, got %d", i, userID, listed[i].UserID)
		}
	}
}
