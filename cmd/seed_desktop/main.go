package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"desktop-realtime/internal/auth"
	"desktop-realtime/internal/config"
	"desktop-realtime/internal/database"
	"desktop-realtime/internal/model"
)

// 로컬 개발용: 소유자/편집자/뷰어 세 명과 에셋 몇 개가 있는 데스크톱 생성
func main() {
	title := flag.String("title", "Demo desktop", "desktop title")
	reset := flag.Bool("reset", false, "delete the existing demo desktop with the same title first")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, using environment variables")
	}
	cfg := config.LoadClient()

	db, err := database.ConnectDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	users := []model.User{
		{Email: "owner@desktop.local", FirstName: "Owner"},
		{Email: "editor@desktop.local", FirstName: "Editor"},
		{Email: "viewer@desktop.local", FirstName: "Viewer"},
	}
	var desktop model.Desktop

	err = db.Transaction(func(tx *gorm.DB) error {
		for i := range users {
			if err := tx.Where("email = ?", users[i].Email).FirstOrCreate(&users[i]).Error; err != nil {
				return err
			}
		}

		if *reset {
			log.Println("Removing previous demo desktop...")
			var ids []int64
			if err := tx.Model(&model.Desktop{}).Where("owner_id = ? AND title = ?", users[0].ID, *title).Pluck("id", &ids).Error; err != nil {
				return err
			}
			if len(ids) > 0 {
				if err := tx.Where("desktop_id IN ?", ids).Delete(&model.DesktopAsset{}).Error; err != nil {
					return err
				}
				if err := tx.Where("desktop_id IN ?", ids).Delete(&model.DesktopShare{}).Error; err != nil {
					return err
				}
				if err := tx.Delete(&model.Desktop{}, ids).Error; err != nil {
					return err
				}
			}
		}

		log.Println("Creating desktop...")
		desktop = model.Desktop{OwnerID: users[0].ID, Title: *title, ViewportZoom: 1}
		if err := tx.Create(&desktop).Error; err != nil {
			return err
		}

		log.Println("Sharing with editor and viewer...")
		shares := []model.DesktopShare{
			{DesktopID: desktop.ID, UserID: users[1].ID, Permission: model.SharePermissionEdit},
			{DesktopID: desktop.ID, UserID: users[2].ID, Permission: model.SharePermissionView},
		}
		if err := tx.Create(&shares).Error; err != nil {
			return err
		}

		log.Println("Placing assets...")
		return tx.Create(demoAssets(desktop.ID, users[0].ID)).Error
	})
	if err != nil {
		log.Fatalf("Failed to seed desktop: %v", err)
	}

	log.Printf("✅ Desktop %d seeded", desktop.ID)

	if cfg.Auth.JWTSecret == "" {
		log.Println("⚠️ JWT_SECRET not set, skipping tokens")
		return
	}
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	for _, u := range users {
		token, err := jwtManager.GenerateAccessToken(u.ID, u.Email, u.FirstName)
		if err != nil {
			log.Fatalf("Failed to sign token for %s: %v", u.Email, err)
		}
		fmt.Printf("%-8s DESKTOP_TOKEN=%s\n", u.FirstName, token)
	}
}

func demoAssets(desktopID, ownerID int64) []model.DesktopAsset {
	size := func(v float64) *float64 { return &v }
	return []model.DesktopAsset{
		{DesktopID: desktopID, AssetType: model.AssetTypeText, PosX: 0, PosY: 0, Width: size(240), Height: size(120), ZIndex: 1, Content: "Welcome", CreatedBy: ownerID},
		{DesktopID: desktopID, AssetType: model.AssetTypeImage, PosX: 320, PosY: 40, Width: size(400), Height: size(300), ZIndex: 2, URL: "https://picsum.photos/400/300", CreatedBy: ownerID},
		{DesktopID: desktopID, AssetType: model.AssetTypeImage, PosX: -200, PosY: 420, ZIndex: 3, URL: "https://picsum.photos/300/200", CreatedBy: ownerID},
		{DesktopID: desktopID, AssetType: model.AssetTypeVideo, PosX: 1800, PosY: 900, Width: size(640), Height: size(360), ZIndex: 4, URL: "https://example.com/clip.mp4", CreatedBy: ownerID},
	}
}
