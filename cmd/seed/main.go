package main

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"buildhub/internal/database"
	"buildhub/internal/domain/notification"
	"buildhub/internal/domain/user"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "buildhub.db"
	}

	db, err := database.Connect(dsn, zap.NewNop())
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := db.AutoMigrate(&user.User{}, &notification.Notification{}); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM notifications")
	db.Exec("DELETE FROM users")

	ctx := context.Background()
	users := user.NewRepository(db)

	// ================== USERS ==================
	log.Println("Creating users...")

	mustUser := func(email, password, name string, role user.Role) *user.User {
		hash, err := user.HashPassword(password)
		if err != nil {
			log.Fatal("hashing password:", err)
		}
		u := &user.User{Email: email, PasswordHash: hash, Name: name, Role: role}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("creating %s: %v", email, err)
		}
		log.Printf("%s created: %s / %s", role, email, password)
		return u
	}

	admin := mustUser("admin@buildhub.local", "admin123", "Site Administrator", user.RoleAdmin)
	second := mustUser("ops@buildhub.local", "admin123", "Operations Lead", user.RoleAdmin)
	mustUser("manager@buildhub.local", "manager123", "Project Manager", user.RoleManager)

	contractors := make([]*user.User, 0, 3)
	for i, email := range []string{"framing@crew.local", "electric@crew.local", "roofing@crew.local"} {
		contractors = append(contractors,
			mustUser(email, "contractor123", fmt.Sprintf("Contractor %d", i+1), user.RoleContractor))
	}

	// ================== NOTIFICATIONS ==================
	log.Println("Creating notifications...")
	repo := notification.NewRepository(db)
	now := time.Now().UTC()

	samples := []notification.Notification{
		{
			Type: notification.TypeUserCreated, Title: "New contractor registered",
			Message: contractors[0].Name + " signed up and awaits approval", Priority: notification.PriorityHigh,
			EntityID: contractors[0].ID, EntityType: "user",
			Metadata: datatypes.JSONMap{notification.MetaPriorityAlert: true},
		},
		{
			Type: notification.TypeProjectUpdate, Title: "Foundation poured",
			Message: "Lot 14 foundation passed inspection", ProjectID: "lot-14",
		},
		{
			Type: notification.TypeMilestoneComplete, Title: "Framing complete",
			Message: "Lot 9 framing signed off", ProjectID: "lot-9",
		},
		{
			Type: notification.TypePaymentDue, Title: "Invoice 1042 due",
			Message: "Electrical rough-in invoice due Friday", Priority: notification.PriorityHigh,
			EntityID: "inv-1042", EntityType: "invoice",
		},
		{
			// hidden category, never shown in the dashboard
			Type: notification.TypePaymentRecorded, Title: "Payment Recorded: invoice 1038",
			EntityID: "inv-1038", EntityType: "payment",
		},
		{
			Type: notification.TypeMessage, Title: "Question about window order",
			Message: "Can we swap to double glazing?", ConversationID: "conv-7",
			Metadata: datatypes.JSONMap{notification.MetaSenderID: contractors[1].ID},
		},
		{
			// sent by an admin, filtered for every admin session
			Type: notification.TypeMessage, Title: "Reminder: site safety walk",
			ConversationID: "conv-8",
			Metadata:       datatypes.JSONMap{notification.MetaSenderID: second.ID},
		},
		{
			Type: notification.TypeEmergency, Title: "Water main break on Lot 3",
			Message: "Crew evacuated, utility called", Priority: notification.PriorityUrgent,
			Metadata: datatypes.JSONMap{notification.MetaPriorityAlert: true},
		},
		{
			Type: notification.TypeOrderApproved, Title: "Lumber order approved",
			EntityID: "order-55", EntityType: "order",
			Metadata: datatypes.JSONMap{notification.MetaPerformedBy: admin.ID},
		},
		{
			Type: notification.TypeOrderDelivered, Title: "Roofing shingles delivered",
			EntityID: "order-56", EntityType: "order", Priority: notification.PriorityLow,
		},
		{
			Type: notification.TypeOrderCancelled, Title: "Concrete order cancelled",
			EntityID: "order-57", EntityType: "order",
		},
		{
			Type: notification.TypeSystem, Title: "Nightly backup finished",
			Priority: notification.PriorityLow,
			Metadata: datatypes.JSONMap{notification.MetaSource: "scheduler"},
		},
	}

	for i := range samples {
		n := samples[i]
		n.CreatedAt = now.Add(-time.Duration(len(samples)-i) * time.Duration(5+rand.IntN(30)) * time.Minute)
		if err := repo.Create(ctx, &n); err != nil {
			log.Fatalf("creating notification %q: %v", n.Title, err)
		}
	}

	// aged record for the retention sweep
	stale := notification.Notification{
		Type: notification.TypeSystem, Title: "Old audit export ready",
		CreatedAt: now.Add(-45 * 24 * time.Hour), IsRead: true,
	}
	if err := repo.Create(ctx, &stale); err != nil {
		log.Fatal("creating stale notification:", err)
	}

	log.Printf("Seed complete: %d users, %d notifications", 3+len(contractors), len(samples)+1)
}
