package repository

// Gateway bundles every repository behind the single surface the state
// store depends on
type Gateway struct {
	*AuthRepository
	*MoodRepository
	*WishRepository
	*CouponRepository
	*MilestoneRepository
	*NoteRepository
	*MessageRepository
	*SettingsRepository
	*FolderRepository
	*MemoryRepository
	*PushRelay
}

// NewGateway wires all repositories to one client
func NewGateway(client *Client, objects ObjectStore, relay *PushRelay) *Gateway {
	return &Gateway{
		AuthRepository:      NewAuthRepository(client),
		MoodRepository:      NewMoodRepository(client),
		WishRepository:      NewWishRepository(client),
		CouponRepository:    NewCouponRepository(client),
		MilestoneRepository: NewMilestoneRepository(client),
		NoteRepository:      NewNoteRepository(client),
		MessageRepository:   NewMessageRepository(client),
		SettingsRepository:  NewSettingsRepository(client),
		FolderRepository:    NewFolderRepository(client),
		MemoryRepository:    NewMemoryRepository(client, objects),
		PushRelay:           relay,
	}
}
