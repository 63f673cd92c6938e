// Command issue-token mints a staff access token for the dashboard API and,
// when sessions are enforced, registers it in Redis. With -revoke it removes a
// previously issued token id instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/dealerworks/dms-backend/pkg/auth"
	"github.com/dealerworks/dms-backend/pkg/auth/session"
	"github.com/dealerworks/dms-backend/pkg/config"
	"github.com/dealerworks/dms-backend/pkg/enums"
	"github.com/dealerworks/dms-backend/pkg/logger"
	"github.com/dealerworks/dms-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "issue-token"})

	_ = godotenv.Load()

	userFlag := flag.String("user", "", "staff user id (uuid); generated when empty")
	roleFlag := flag.String("role", string(enums.StaffRolePartsClerk), "staff role: admin|manager|parts_clerk|service_advisor|sales")
	name := flag.String("name", "", "display name carried in the token")
	revoke := flag.String("revoke", "", "token id (jti) to revoke")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "issue-token",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	var sessions *session.Manager
	if cfg.JWT.RequireSession || *revoke != "" {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(ctx, "error closing redis", err)
			}
		}()
		sessions, err = session.NewManager(redisClient, cfg.JWT)
		requireResource(ctx, logg, "session manager", err)
	}

	if *revoke != "" {
		requireResource(ctx, logg, "revoke", sessions.Revoke(ctx, *revoke))
		fmt.Println("revoked:", *revoke)
		return
	}

	role, err := enums.ParseStaffRole(*roleFlag)
	requireResource(ctx, logg, "role", err)

	userID := uuid.New()
	if *userFlag != "" {
		userID, err = uuid.Parse(*userFlag)
		requireResource(ctx, logg, "user id", err)
	}

	accessID := session.NewAccessID()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
		UserID:      userID,
		Role:        role,
		DisplayName: *name,
		JTI:         accessID,
	})
	requireResource(ctx, logg, "mint token", err)

	if sessions != nil {
		requireResource(ctx, logg, "register session", sessions.Register(ctx, accessID, userID))
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"user_id": userID.String(),
		"role":    string(role),
		"jti":     accessID,
		"ttl":     auth.TokenTTL(cfg.JWT).String(),
	}), "staff token issued")
	fmt.Println(token)
}

func requireResource(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("failed to initialize %s", name), err)
	os.Exit(1)
}
