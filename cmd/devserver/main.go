package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/fablecraft/appcore/internal/stubserver"
)

func main() {
	viper.AutomaticEnv()
	_ = viper.BindEnv("devserver.port", "DEVSERVER_PORT")
	_ = viper.BindEnv("devserver.jwt_secret", "DEVSERVER_JWT_SECRET")
	_ = viper.BindEnv("devserver.step_delay_ms", "DEVSERVER_STEP_DELAY_MS")

	viper.SetDefault("devserver.port", "8000")
	viper.SetDefault("devserver.jwt_secret", "dev-secret")
	viper.SetDefault("devserver.step_delay_ms", 500)

	srv := stubserver.New(stubserver.Options{
		JWTSecret:  viper.GetString("devserver.jwt_secret"),
		StepDelay:  time.Duration(viper.GetInt("devserver.step_delay_ms")) * time.Millisecond,
		LogRequest: true,
	})

	token, err := stubserver.GenerateToken(viper.GetString("devserver.jwt_secret"), "dev-user")
	if err != nil {
		log.Fatalf("Failed to mint dev token: %v", err)
	}
	log.Printf("Dev bearer token: %s", token)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down devserver...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	addr := ":" + viper.GetString("devserver.port")
	log.Printf("Devserver starting on %s", addr)
	if err := srv.Start(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
