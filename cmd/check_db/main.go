package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"desktop-realtime/internal/database"
)

var desktopTables = []string{"users", "desktops", "desktop_shares", "desktop_assets"}

func main() {
	desktopID := flag.Int64("desktop", 0, "inspect one desktop's assets")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, using environment variables")
	}

	db, err := database.ConnectDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	fmt.Println("✅ Connected to database")
	fmt.Println()

	missing := checkTables(db)
	if missing > 0 {
		fmt.Println("⚠️  Restart the server so AutoMigrate can create the missing tables")
		return
	}

	printAssetStats(db)
	printShareStats(db)

	if *desktopID != 0 {
		printDesktop(db, *desktopID)
	}
}

func checkTables(db *gorm.DB) int {
	fmt.Println("📋 Tables:")
	missing := 0
	for _, table := range desktopTables {
		ok := db.Migrator().HasTable(table)
		mark := "✅"
		if !ok {
			mark = "❌"
			missing++
		}
		fmt.Printf("  %s %s\n", mark, table)
	}

	// metadata 는 jsonb 여야 chatId 조회가 가능
	var dataType string
	query := `
		SELECT data_type
		FROM information_schema.columns
		WHERE table_name = 'desktop_assets'
		AND column_name = 'metadata'
	`
	if err := db.Raw(query).Scan(&dataType).Error; err != nil {
		log.Fatal("Failed to check metadata column:", err)
	}
	fmt.Printf("  - desktop_assets.metadata type: %s\n", dataType)
	fmt.Println()
	return missing
}

func printAssetStats(db *gorm.DB) {
	type AssetStats struct {
		Total      int64
		Image      int64
		Video      int64
		Text       int64
		Unsized    int64
		FromChat   int64
		Desktops   int64
		MaxPerDesk int64
	}
	var stats AssetStats
	query := `
		SELECT
			COUNT(*) as total,
			COUNT(CASE WHEN asset_type = 'image' THEN 1 END) as image,
			COUNT(CASE WHEN asset_type = 'video' THEN 1 END) as video,
			COUNT(CASE WHEN asset_type = 'text' THEN 1 END) as text,
			COUNT(CASE WHEN width IS NULL OR height IS NULL THEN 1 END) as unsized,
			COUNT(CASE WHEN metadata->>'chatId' IS NOT NULL THEN 1 END) as from_chat,
			COUNT(DISTINCT desktop_id) as desktops
		FROM desktop_assets
	`
	if err := db.Raw(query).Scan(&stats).Error; err != nil {
		log.Fatal("Failed to get asset statistics:", err)
	}
	if err := db.Raw(`
		SELECT COALESCE(MAX(cnt), 0) FROM (
			SELECT COUNT(*) as cnt FROM desktop_assets GROUP BY desktop_id
		) per_desktop
	`).Scan(&stats.MaxPerDesk).Error; err != nil {
		log.Fatal("Failed to get per-desktop maximum:", err)
	}

	fmt.Println("📈 Asset Statistics:")
	fmt.Printf("  - Total assets: %d (on %d desktops)\n", stats.Total, stats.Desktops)
	fmt.Printf("  - image: %d, video: %d, text: %d\n", stats.Image, stats.Video, stats.Text)
	fmt.Printf("  - Without stored size: %d\n", stats.Unsized)
	fmt.Printf("  - Dropped from chat: %d\n", stats.FromChat)
	fmt.Printf("  - Largest desktop: %d assets\n", stats.MaxPerDesk)
	fmt.Println()
}

func printShareStats(db *gorm.DB) {
	type ShareStats struct {
		Total   int64
		View    int64
		Edit    int64
		Orphans int64
	}
	var stats ShareStats
	query := `
		SELECT
			COUNT(*) as total,
			COUNT(CASE WHEN s.permission = 'VIEW' THEN 1 END) as view,
			COUNT(CASE WHEN s.permission = 'EDIT' THEN 1 END) as edit,
			COUNT(CASE WHEN d.id IS NULL THEN 1 END) as orphans
		FROM desktop_shares s
		LEFT JOIN desktops d ON d.id = s.desktop_id
	`
	if err := db.Raw(query).Scan(&stats).Error; err != nil {
		log.Fatal("Failed to get share statistics:", err)
	}

	fmt.Println("👥 Share Statistics:")
	fmt.Printf("  - Total shares: %d\n", stats.Total)
	fmt.Printf("  - VIEW: %d\n", stats.View)
	fmt.Printf("  - EDIT: %d\n", stats.Edit)
	if stats.Orphans > 0 {
		fmt.Printf("  - ⚠️ Shares pointing at deleted desktops: %d\n", stats.Orphans)
	}
	fmt.Println()
}

func printDesktop(db *gorm.DB, desktopID int64) {
	type DesktopInfo struct {
		ID           int64
		Title        string
		OwnerID      int64
		ViewportX    float64
		ViewportY    float64
		ViewportZoom float64
	}
	var d DesktopInfo
	if err := db.Raw(`
		SELECT id, title, owner_id, viewport_x, viewport_y, viewport_zoom
		FROM desktops WHERE id = ?
	`, desktopID).Scan(&d).Error; err != nil {
		log.Fatal("Failed to get desktop:", err)
	}
	if d.ID == 0 {
		fmt.Printf("❌ Desktop %d does NOT exist\n", desktopID)
		return
	}

	fmt.Printf("🖼  Desktop %d %q (owner %d)\n", d.ID, d.Title, d.OwnerID)
	fmt.Printf("  - Saved viewport: x=%.1f y=%.1f zoom=%.2f\n", d.ViewportX, d.ViewportY, d.ViewportZoom)

	type AssetInfo struct {
		ID        int64
		AssetType string
		PosX      float64
		PosY      float64
		ZIndex    int
	}
	var assets []AssetInfo
	if err := db.Raw(`
		SELECT id, asset_type, pos_x, pos_y, z_index
		FROM desktop_assets
		WHERE desktop_id = ?
		ORDER BY z_index DESC, id DESC
		LIMIT 10
	`, desktopID).Scan(&assets).Error; err != nil {
		log.Fatal("Failed to get assets:", err)
	}

	fmt.Println("  - Top assets (last 10 by z-index):")
	for _, a := range assets {
		fmt.Printf("    - ID: %d, Type: %s, Pos: (%.1f, %.1f), Z: %d\n", a.ID, a.AssetType, a.PosX, a.PosY, a.ZIndex)
	}
}
