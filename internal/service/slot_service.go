package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bellgado/calendar/internal/model"
)

// Рабочее окно расписания: слоты разрешены с 07:00 до 19:00
const (
	allowedHourFrom = 7
	allowedHourTo   = 19
)

type slotStore interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	ExistsAtStart(ctx context.Context, startAt time.Time) (bool, error)
	StartsBetween(ctx context.Context, from, to time.Time) ([]time.Time, error)
	ListInRange(ctx context.Context, from, to time.Time, statuses []model.SlotStatus) ([]*model.Slot, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID, from, to time.Time, statuses []model.SlotStatus) ([]*model.Slot, error)
	ListBlockable(ctx context.Context, from, to time.Time) ([]*model.Slot, error)
	ListByBlock(ctx context.Context, blockID uuid.UUID) ([]*model.Slot, error)
	Update(ctx context.Context, slot *model.Slot) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type studentGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error)
}

type txManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type waitlistRemover interface {
	RemoveActiveByStudent(ctx context.Context, studentID uuid.UUID) (int64, error)
}

// TransitionListener получает успешные переходы слотов после фиксации
// транзакции. Вызов fire-and-forget: слушатель не может повлиять на
// результат операции.
type TransitionListener interface {
	SlotChanged(ctx context.Context, slot *model.Slot, event *model.SlotEvent)
}

// CancelActor кто инициировал отмену занятия
type CancelActor string

const (
	CancelActorStudent CancelActor = "student"
	CancelActorTeacher CancelActor = "teacher"
)

// WeeklyRule правило недельного расписания: день недели и окно "HH:MM"
type WeeklyRule struct {
	Weekday   time.Weekday `json:"weekday"`
	StartTime string       `json:"start_time"`
	EndTime   string       `json:"end_time"`
}

// GenerateRequest диапазон дат (время полей From/To игнорируется),
// таймзона и набор недельных правил
type GenerateRequest struct {
	From        time.Time    `json:"from"`
	To          time.Time    `json:"to"`
	Timezone    string       `json:"timezone"`
	WeeklyRules []WeeklyRule `json:"weekly_rules"`
}

type GenerateResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

type RescheduleResult struct {
	Origin *model.Slot `json:"origin"`
	Target *model.Slot `json:"target"`
}

type transition struct {
	slot  *model.Slot
	event *model.SlotEvent
}

// SlotService машина состояний слота. Все мутации проходят через неё,
// каждая операция выполняется в одной serializable-транзакции вместе с
// записью события аудита.
type SlotService struct {
	tx        txManager
	slots     slotStore
	students  studentGetter
	events    *SlotEventService
	waitlist  waitlistRemover
	listeners []TransitionListener
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

func NewSlotService(
	tx txManager,
	slots slotStore,
	students studentGetter,
	events *SlotEventService,
	loc *time.Location,
	logger *zap.Logger,
) *SlotService {
	return &SlotService{
		tx:       tx,
		slots:    slots,
		students: students,
		events:   events,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// AddListener регистрирует слушателя переходов. Вызывать при старте
// процесса, до начала обработки операций.
func (s *SlotService) AddListener(l TransitionListener) {
	s.listeners = append(s.listeners, l)
}

// SetWaitlist подключает лист ожидания: бронирование снимает активные
// заявки ученика
func (s *SlotService) SetWaitlist(w waitlistRemover) {
	s.waitlist = w
}

// Create создаёт свободный слот. Conflict если слот с таким временем
// начала уже существует.
func (s *SlotService) Create(ctx context.Context, startAt time.Time) (*model.Slot, error) {
	if err := s.validateNotInPast(startAt, "create a slot"); err != nil {
		return nil, err
	}
	if err := s.validateWorkingHours(startAt); err != nil {
		return nil, err
	}

	var created *model.Slot
	var tr transition

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.slots.ExistsAtStart(ctx, startAt)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: a slot already exists at %s", model.ErrConflict, startAt)
		}

		slot := model.NewSlot(startAt)
		if err := s.slots.Create(ctx, slot); err != nil {
			return err
		}

		event, err := s.events.Record(ctx, slot.ID, model.EventTypeCreated)
		if err != nil {
			return err
		}

		created = slot
		tr = transition{slot: slot, event: event}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyListeners(ctx, tr)

	s.logger.Info("Slot created",
		zap.String("slot_id", created.ID.String()),
		zap.Time("start_at", created.StartAt),
	)

	return created, nil
}

// Generate массово создаёт слоты по недельным правилам. Для каждого дня
// диапазона и каждого подходящего правила нарезаются часовые интервалы;
// занятые времена начала пропускаются и попадают в счётчик Skipped.
func (s *SlotService) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	var result GenerateResult

	rules, err := parseWeeklyRules(req.WeeklyRules)
	if err != nil {
		return result, err
	}

	loc, err := time.LoadLocation(req.Timezone)
	if err != nil {
		return result, fmt.Errorf("%w: unknown timezone %q", model.ErrValidation, req.Timezone)
	}

	fromDate := time.Date(req.From.Year(), req.From.Month(), req.From.Day(), 0, 0, 0, 0, loc)
	toDate := time.Date(req.To.Year(), req.To.Month(), req.To.Day(), 0, 0, 0, 0, loc)
	if toDate.Before(fromDate) {
		return result, fmt.Errorf("%w: date range end is before start", model.ErrValidation)
	}

	var transitions []transition

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		starts, err := s.slots.StartsBetween(ctx, fromDate, toDate.AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		existing := make(map[int64]bool, len(starts))
		for _, at := range starts {
			existing[at.Unix()] = true
		}

		for day := fromDate; !day.After(toDate); day = day.AddDate(0, 0, 1) {
			for _, rule := range rules {
				if day.Weekday() != rule.weekday {
					continue
				}

				for minute := rule.startMinute; minute+60 <= rule.endMinute; minute += 60 {
					startAt := time.Date(day.Year(), day.Month(), day.Day(), minute/60, minute%60, 0, 0, loc)

					if existing[startAt.Unix()] {
						result.Skipped++
						continue
					}

					slot := model.NewSlot(startAt)
					if err := s.slots.Create(ctx, slot); err != nil {
						return err
					}
					event, err := s.events.Record(ctx, slot.ID, model.EventTypeGenerated)
					if err != nil {
						return err
					}

					existing[startAt.Unix()] = true
					result.Created++
					transitions = append(transitions, transition{slot: slot, event: event})
				}
			}
		}

		return nil
	})
	if err != nil {
		return GenerateResult{}, err
	}

	s.notifyListeners(ctx, transitions...)

	s.logger.Info("Slots generated",
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
	)

	return result, nil
}

// Book бронирует свободный слот за учеником
func (s *SlotService) Book(ctx context.Context, slotID, studentID uuid.UUID, notes *string) (*model.Slot, error) {
	var booked *model.Slot
	var tr transition

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		slot, err := s.getSlot(ctx, slotID)
		if err != nil {
			return err
		}

		if err := s.validateNotInPast(slot.StartAt, "book a slot"); err != nil {
			return err
		}
		if slot.Status != model.SlotStatusFree {
			return fmt.Errorf("%w: slot must be free to book, current status %s", model.ErrInvalidState, slot.Status)
		}

		student, err := s.getStudent(ctx, studentID)
		if err != nil {
			return err
		}

		sid := student.ID
		slot.Status = model.SlotStatusBooked
		slot.StudentID = &sid
		if notes != nil {
			slot.Notes = *notes
		}

		if err := s.slots.Update(ctx, slot); err != nil {
			return err
		}

		event, err := s.events.RecordWithStudents(ctx, slot.ID, model.EventTypeBooked, nil, &sid, nil)
		if err != nil {
			return err
		}

		// ученик получил слот - его заявки в листе ожидания снимаются
		if s.waitlist != nil {
			if _, err := s.waitlist.RemoveActiveByStudent(ctx, sid); err != nil {
				return err
			}
		}

		booked = slot
		tr = transition{slot: slot, event: event}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyListeners(ctx, tr)

	s.logger.Info("Slot booked",
		zap.String("slot_id", slotID.String()),
		zap.String("student_id", studentID.String()),
	)

	return booked, nil
}

// Cancel отменяет забронированный слот. Ссылка на ученика остаётся на
// слоте, прежний ученик фиксируется в событии.
func (s *SlotService) Cancel(ctx context.Context, slotID uuid.UUID, cancelledBy CancelActor, reason string) (*model.Slot, error) {
	if cancelledBy == "" {
		return nil, fmt.Errorf("%w: cancelledBy is required", model.ErrValidation)
	}

	var cancelled *model.Slot
	var tr transition

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		slot, err := s.getSlot(ctx, slotID)
		if err != nil {
			return err
		}

		if slot.Status != model.SlotStatusBooked {
			return fmt.Errorf("%w: slot must be booked to cancel, current status %s", model.ErrInvalidState, slot.Status)
		}

		oldStudentID := slot.StudentID
		slot.Status = model.SlotStatusCancelled

		if err := s.slots.Update(ctx, slot); err != nil {
			return err
		}

		meta := map[string]string{"cancelled_by": string(cancelledBy)}
		if reason != "" {
			meta["reason"] = reason
		}
		event, err := s.events.RecordWithStudents(ctx, slot.ID, model.EventTypeCancelled, oldStudentID, nil, meta)
		if err != nil {
			return err
		}

		cancelled = slot
		tr = transition{slot: slot, event: event}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyListeners(ctx, tr)

	s.logger.Info("Slot cancelled",
		zap.String("slot_id", slotID.String()),
		zap.String("cancelled_by", string(cancelledBy)),
	)

	return cancelled, nil
}

// Free возвращает отменённый или забронированный слот в свободное состояние
func (s *SlotService) Free(ctx context.Context, slotID uuid.UUID, notes *string) (*model.Slot, error) {
	var freed *model.Slot
	var tr transition

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		slot, err := s.getSlot(ctx, slotID)
		if err != nil {
			return err
		}

		if slot.Status != model.SlotStatusCancelled && slot.Status != model.SlotStatusBooked {
			return fmt.Errorf("%w: slot must be cancelled or booked to free, current status %s", model.ErrInvalidState, slot.Status)
		}

		oldStudentID := slot.StudentID
		slot.Status = model.SlotStatusFree
		slot.StudentID = nil
		if notes != nil {
			slot.Notes = *notes
		}

		if err := s.slots.Update(ctx, slot); err != nil {
			return err
		}

		event, err := s.events.RecordWithStudents(ctx, slot.ID, model.EventTypeFreed, oldStudentID, nil, nil)
		if err != nil {
			return err
		}

		freed = slot
		tr = transition{slot: slot, event: event}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyListeners(ctx, tr)

	s.logger.Info("Slot freed", zap.String("slot_id", slotID.String()))

	return freed, nil
}

// Replace заменяет ученика на слоте. Отменённый слот при этом
// возвращается в booked.
func (s *SlotService) Replace(ctx context.Context, slotID, newStudentID uuid.UUID, reason string) (*model.Slot, error) {
	var replaced *model.Slot
	var tr transition

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		slot, err := s.getSlot(ctx, slotID)
		if err != nil {
			return err
		}

		if slot.Status != model.SlotStatusBooked && slot.Status != model.SlotStatusCancelled {
			return fmt.Errorf("%w: slot must be booked or cancelled to replace, current status %s", model.ErrInvalidState, slot.Status)
		}

		newStudent, err := s.getStudent(ctx, newStudentID)
		if err != nil {
			return err
		}

		oldStudentID := slot.StudentID
		sid := newStudent.ID
		slot.StudentID = &sid
		if slot.Status == model.SlotStatusCancelled {
			slot.Status = model.SlotStatusBooked
		}

		if err := s.slots.Update(ctx, slot); err != nil {
			return err
		}

		var meta map[string]string
		if reason != "" {
			meta = map[string]string{"reason": reason}
		}
		event, err := s.events.RecordWithStudents(ctx, slot.ID, model.EventTypeReplaced, oldStudentID, &sid, meta)
		if err != nil {
			return err
		}

		replaced = slot
		tr = transition{slot: slot, event: event}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyListeners(ctx, tr)

	s.logger.Info("Slot student replaced",
		zap.String("slot_id", slotID.String()),
		zap.String("new_student_id", newStudentID.String()),
	)

	return replaced, nil
}

// Reschedule переносит занятие с одного слота на другой. Оба слота и оба
// события пишутся в одной транзакции: читатель никогда не увидит два
// свободных или два забронированных слота.
func (s *SlotService) Reschedule(ctx context.Context, originSlotID, targetSlotID uuid.UUID, reason string) (*RescheduleResult, error) {
	if originSlotID == targetSlotID {
		return nil, fmt.Errorf("%w: origin and target slots are the same", model.ErrValidation)
	}

	var result *RescheduleResult
	var transitions []transition

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		origin, err := s.getSlot(ctx, originSlotID)
		if err != nil {
			return err
		}
		if origin.Status != model.SlotStatusBooked {
			return fmt.Errorf("%w: origin slot must be booked to reschedule, current status %s", model.ErrInvalidState, origin.Status)
		}

		target, err := s.getSlot(ctx, targetSlotID)
		if err != nil {
			return err
		}
		if err := s.validateNotInPast(target.StartAt, "reschedule to a slot"); err != nil {
			return err
		}
		if target.Status != model.SlotStatusFree {
			return fmt.Errorf("%w: target slot must be free, current status %s", model.ErrInvalidState, target.Status)
		}

		studentID := origin.StudentID
		notes := origin.Notes

		origin.Status = model.SlotStatusFree
		origin.StudentID = nil
		origin.Notes = ""
		if err := s.slots.Update(ctx, origin); err != nil {
			return err
		}

		target.Status = model.SlotStatusBooked
		target.StudentID = studentID
		target.Notes = notes
		if err := s.slots.Update(ctx, target); err != nil {
			return err
		}

		originMeta := map[string]string{"target_slot_id": targetSlotID.String()}
		targetMeta := map[string]string{"origin_slot_id": originSlotID.String()}
		if reason != "" {
			originMeta["reason"] = reason
			targetMeta["reason"] = reason
		}

		originEvent, err := s.events.RecordWithStudents(ctx, origin.ID, model.EventTypeRescheduled, studentID, nil, originMeta)
		if err != nil {
			return err
		}
		targetEvent, err := s.events.RecordWithStudents(ctx, target.ID, model.EventTypeRescheduled, nil, studentID, targetMeta)
		if err != nil {
			return err
		}

		result = &RescheduleResult{Origin: origin, Target: target}
		transitions = []transition{
			{slot: origin, event: originEvent},
			{slot: target, event: targetEvent},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyListeners(ctx, transitions...)

	s.logger.Info("Slot rescheduled",
		zap.String("origin_slot_id", originSlotID.String()),
		zap.String("target_slot_id", targetSlotID.String()),
	)

	return result, nil
}

// BlockRange блокирует окно [from, to): существующие незабронированные
// слоты становятся blocked с тегом группы, для часов без слота создаются
// новые blocked-слоты. Забронированные слоты не трогаются.
func (s *SlotService) BlockRange(ctx context.Context, blockID uuid.UUID, from, to time.Time) error {
	var transitions []transition
	blockMeta := map[string]string{"block_id": blockID.String()}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.slots.ListBlockable(ctx, from, to)
		if err != nil {
			return err
		}

		for _, slot := range existing {
			bid := blockID
			slot.Status = model.SlotStatusBlocked
			slot.BlockID = &bid
			if err := s.slots.Update(ctx, slot); err != nil {
				return err
			}
			event, err := s.events.RecordWithMeta(ctx, slot.ID, model.EventTypeBlocked, blockMeta)
			if err != nil {
				return err
			}
			transitions = append(transitions, transition{slot: slot, event: event})
		}

		starts, err := s.slots.StartsBetween(ctx, from, to)
		if err != nil {
			return err
		}
		taken := make(map[int64]bool, len(starts))
		for _, at := range starts {
			taken[at.Unix()] = true
		}

		for at := from; at.Before(to); at = at.Add(time.Hour) {
			if taken[at.Unix()] {
				continue
			}
			bid := blockID
			slot := model.NewSlot(at)
			slot.Status = model.SlotStatusBlocked
			slot.BlockID = &bid
			if err := s.slots.Create(ctx, slot); err != nil {
				return err
			}
			event, err := s.events.RecordWithMeta(ctx, slot.ID, model.EventTypeBlocked, blockMeta)
			if err != nil {
				return err
			}
			transitions = append(transitions, transition{slot: slot, event: event})
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.notifyListeners(ctx, transitions...)

	s.logger.Info("Slots blocked",
		zap.String("block_id", blockID.String()),
		zap.Int("slots", len(transitions)),
	)

	return nil
}

// UnblockByBlock возвращает все слоты группы блокировки в свободное
// состояние, снимая тег
func (s *SlotService) UnblockByBlock(ctx context.Context, blockID uuid.UUID) error {
	var transitions []transition
	blockMeta := map[string]string{"block_id": blockID.String()}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		slots, err := s.slots.ListByBlock(ctx, blockID)
		if err != nil {
			return err
		}

		for _, slot := range slots {
			if slot.Status != model.SlotStatusBlocked {
				continue
			}
			slot.Status = model.SlotStatusFree
			slot.BlockID = nil
			if err := s.slots.Update(ctx, slot); err != nil {
				return err
			}
			event, err := s.events.RecordWithMeta(ctx, slot.ID, model.EventTypeUnblocked, blockMeta)
			if err != nil {
				return err
			}
			transitions = append(transitions, transition{slot: slot, event: event})
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.notifyListeners(ctx, transitions...)

	s.logger.Info("Slots unblocked",
		zap.String("block_id", blockID.String()),
		zap.Int("slots", len(transitions)),
	)

	return nil
}

// Block блокирует одиночный слот без группы блокировки
func (s *SlotService) Block(ctx context.Context, slotID uuid.UUID) (*model.Slot, error) {
	var blocked *model.Slot
	var tr transition

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		slot, err := s.getSlot(ctx, slotID)
		if err != nil {
			return err
		}

		if slot.Status == model.SlotStatusBooked {
			return fmt.Errorf("%w: cannot block a booked slot, cancel it first", model.ErrInvalidState)
		}
		if slot.Status == model.SlotStatusBlocked {
			return fmt.Errorf("%w: slot is already blocked", model.ErrInvalidState)
		}

		slot.Status = model.SlotStatusBlocked
		if err := s.slots.Update(ctx, slot); err != nil {
			return err
		}

		event, err := s.events.Record(ctx, slot.ID, model.EventTypeBlocked)
		if err != nil {
			return err
		}

		blocked = slot
		tr = transition{slot: slot, event: event}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyListeners(ctx, tr)

	return blocked, nil
}

// Unblock возвращает одиночный заблокированный слот в свободное состояние.
// Другие слоты той же группы блокировки не затрагиваются.
func (s *SlotService) Unblock(ctx context.Context, slotID uuid.UUID) (*model.Slot, error) {
	var unblocked *model.Slot
	var tr transition

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		slot, err := s.getSlot(ctx, slotID)
		if err != nil {
			return err
		}

		if slot.Status != model.SlotStatusBlocked {
			return fmt.Errorf("%w: slot must be blocked to unblock, current status %s", model.ErrInvalidState, slot.Status)
		}

		var meta map[string]string
		if slot.BlockID != nil {
			meta = map[string]string{"block_id": slot.BlockID.String()}
		}

		slot.Status = model.SlotStatusFree
		slot.BlockID = nil
		if err := s.slots.Update(ctx, slot); err != nil {
			return err
		}

		event, err := s.events.RecordWithMeta(ctx, slot.ID, model.EventTypeUnblocked, meta)
		if err != nil {
			return err
		}

		unblocked = slot
		tr = transition{slot: slot, event: event}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyListeners(ctx, tr)

	return unblocked, nil
}

// UpdateNotes обновляет заметки слота
func (s *SlotService) UpdateNotes(ctx context.Context, slotID uuid.UUID, notes string) (*model.Slot, error) {
	var updated *model.Slot

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		slot, err := s.getSlot(ctx, slotID)
		if err != nil {
			return err
		}

		slot.Notes = notes
		if err := s.slots.Update(ctx, slot); err != nil {
			return err
		}

		if _, err := s.events.Record(ctx, slot.ID, model.EventTypeNotesUpdated); err != nil {
			return err
		}

		updated = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete жёстко удаляет слот. Забронированный слот удалить нельзя.
// События не пишутся: записи больше нет.
func (s *SlotService) Delete(ctx context.Context, slotID uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		slot, err := s.getSlot(ctx, slotID)
		if err != nil {
			return err
		}

		if slot.Status == model.SlotStatusBooked {
			return fmt.Errorf("%w: cannot delete a booked slot", model.ErrConflict)
		}

		return s.slots.Delete(ctx, slot.ID)
	})
}

// GetByID получает слот по ID
func (s *SlotService) GetByID(ctx context.Context, slotID uuid.UUID) (*model.Slot, error) {
	return s.getSlot(ctx, slotID)
}

// ListInRange получает слоты диапазона с опциональным фильтром по статусам
func (s *SlotService) ListInRange(ctx context.Context, from, to time.Time, statuses []model.SlotStatus) ([]*model.Slot, error) {
	return s.slots.ListInRange(ctx, from, to, statuses)
}

// ListByStudent получает слоты ученика в диапазоне
func (s *SlotService) ListByStudent(ctx context.Context, studentID uuid.UUID, from, to time.Time, statuses []model.SlotStatus) ([]*model.Slot, error) {
	if _, err := s.getStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return s.slots.ListByStudent(ctx, studentID, from, to, statuses)
}

// History возвращает журнал событий слота
func (s *SlotService) History(ctx context.Context, slotID uuid.UUID) ([]*model.SlotEvent, error) {
	if _, err := s.getSlot(ctx, slotID); err != nil {
		return nil, err
	}
	return s.events.ListBySlot(ctx, slotID)
}

func (s *SlotService) getSlot(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, fmt.Errorf("%w: slot %s", model.ErrNotFound, id)
	}
	return slot, nil
}

func (s *SlotService) getStudent(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, fmt.Errorf("%w: student %s", model.ErrNotFound, id)
	}
	return student, nil
}

func (s *SlotService) validateNotInPast(t time.Time, action string) error {
	if t.Before(s.now()) {
		return fmt.Errorf("%w: cannot %s in the past, requested %s", model.ErrConflict, action, t)
	}
	return nil
}

func (s *SlotService) validateWorkingHours(t time.Time) error {
	hour := t.In(s.loc).Hour()
	if hour < allowedHourFrom || hour >= allowedHourTo {
		return fmt.Errorf("%w: slot time must be between 07:00 and 19:00, got hour %d", model.ErrConflict, hour)
	}
	return nil
}

func (s *SlotService) notifyListeners(ctx context.Context, transitions ...transition) {
	for _, tr := range transitions {
		for _, l := range s.listeners {
			l.SlotChanged(ctx, tr.slot, tr.event)
		}
	}
}

type parsedRule struct {
	weekday     time.Weekday
	startMinute int
	endMinute   int
}

func parseWeeklyRules(rules []WeeklyRule) ([]parsedRule, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: at least one weekly rule is required", model.ErrValidation)
	}

	parsed := make([]parsedRule, 0, len(rules))
	for _, rule := range rules {
		start, err := parseClock(rule.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%w: bad rule start time %q", model.ErrValidation, rule.StartTime)
		}
		end, err := parseClock(rule.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: bad rule end time %q", model.ErrValidation, rule.EndTime)
		}

		if start < allowedHourFrom*60 {
			return nil, fmt.Errorf("%w: weekly rule start %s is before 07:00", model.ErrConflict, rule.StartTime)
		}
		if end > allowedHourTo*60 {
			return nil, fmt.Errorf("%w: weekly rule end %s is after 19:00", model.ErrConflict, rule.EndTime)
		}
		if end <= start {
			return nil, fmt.Errorf("%w: weekly rule end %s is not after start %s", model.ErrValidation, rule.EndTime, rule.StartTime)
		}

		parsed = append(parsed, parsedRule{
			weekday:     rule.Weekday,
			startMinute: start,
			endMinute:   end,
		})
	}

	return parsed, nil
}

func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
