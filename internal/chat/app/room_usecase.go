package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chat_relay_service/internal/chat/domain"
	"chat_relay_service/internal/chat/repository"
	"chat_relay_service/pkg/logger"

	"go.uber.org/zap"
)

// RoomUseCase room creation and persisted member list
type RoomUseCase struct {
	roomRepo repository.RoomRepository
	auth     AuthGate
}

// NewRoomUseCase init room use case
func NewRoomUseCase(roomRepo repository.RoomRepository, auth AuthGate) *RoomUseCase {
	return &RoomUseCase{roomRepo: roomRepo, auth: auth}
}

// Create persist a room named name with no members and no latest message
//
// credentials are optional; when present they must verify and the caller
// becomes the room admin.
func (uc *RoomUseCase) Create(ctx context.Context, name, credentials string) (*domain.Room, error) {
	req := domain.CreateRoomRequest{Name: strings.TrimSpace(name)}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	room := &domain.Room{Name: req.Name}
	if credentials != "" {
		id, err := uc.auth.Verify(ctx, credentials)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
		}
		room.Admin = id.MemberID
	}

	if err := uc.roomRepo.CreateRoom(ctx, room); err != nil {
		logger.Log.Error("create room failed", zap.String("name", room.Name), zap.Error(err))
		return nil, persistenceErr("create room", err)
	}
	logger.Log.Info("room created", zap.String("room_id", room.ID), zap.String("admin", room.Admin))
	return room, nil
}

// Get find a room by id
func (uc *RoomUseCase) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRoomNotFound, roomID)
	}
	if err != nil {
		return nil, persistenceErr("find room", err)
	}
	return room, nil
}

// AddMember 加入群組: record the caller in the room's member list
func (uc *RoomUseCase) AddMember(ctx context.Context, roomID, credentials string) (*domain.Room, error) {
	return uc.mutateMembers(ctx, roomID, credentials, uc.roomRepo.AddMember)
}

// RemoveMember 離開群組: drop the caller from the room's member list
func (uc *RoomUseCase) RemoveMember(ctx context.Context, roomID, credentials string) (*domain.Room, error) {
	return uc.mutateMembers(ctx, roomID, credentials, uc.roomRepo.RemoveMember)
}

func (uc *RoomUseCase) mutateMembers(
	ctx context.Context,
	roomID, credentials string,
	op func(ctx context.Context, roomID, memberID string) error,
) (*domain.Room, error) {
	id, err := uc.auth.Verify(ctx, credentials)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	err = op(ctx, roomID, id.MemberID)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRoomNotFound, roomID)
	}
	if err != nil {
		return nil, persistenceErr("update members", err)
	}
	return uc.Get(ctx, roomID)
}

// Rename change the room name, admin only
func (uc *RoomUseCase) Rename(ctx context.Context, roomID, name, credentials string) (*domain.Room, error) {
	id, err := uc.auth.Verify(ctx, credentials)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	req := domain.CreateRoomRequest{Name: strings.TrimSpace(name)}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	room, err := uc.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Admin != id.MemberID {
		return nil, fmt.Errorf("%w: only the room admin can rename", domain.ErrUnauthorized)
	}

	room.Name = req.Name
	if err := uc.roomRepo.UpdateRoom(ctx, room); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRoomNotFound, roomID)
		}
		return nil, persistenceErr("update room", err)
	}
	return room, nil
}
