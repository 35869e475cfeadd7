package liveroom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func participantFixture(userID uint, name string, order int) *Participant {
	return &Participant{
		UserID:      userID,
		DisplayName: name,
		JoinOrder:   order,
	}
}

func TestComputeRanking_ScoreDescending(t *testing.T) {
	// Arrange
	roster := []*Participant{
		participantFixture(1, "Аня", 0),
		participantFixture(2, "Борис", 1),
		participantFixture(3, "Вера", 2),
	}
	progress := map[uint]*ProgressRecord{
		1: {Score: 3, ElapsedTimeMs: 10000},
		2: {Score: 7, ElapsedTimeMs: 12000},
		3: {Score: 5, ElapsedTimeMs: 9000},
	}

	// Act
	ranking := ComputeRanking(roster, progress, 5000)

	// Assert
	assert.Len(t, ranking, 3)
	assert.Equal(t, uint(2), ranking[0].UserID, "Первым должен быть участник с наибольшим счетом")
	assert.Equal(t, uint(3), ranking[1].UserID)
	assert.Equal(t, uint(1), ranking[2].UserID)
	assert.Equal(t, 1, ranking[0].Rank)
	assert.Equal(t, 2, ranking[1].Rank)
	assert.Equal(t, 3, ranking[2].Rank)
}

func TestComputeRanking_EffectiveTimeTieBreak(t *testing.T) {
	// Arrange: одинаковый счет, разное "грязное" время.
	// У участника #1 меньше сырое время, но два неверных ответа дают
	// штраф, который выводит вперед участника #2.
	roster := []*Participant{
		participantFixture(1, "Аня", 0),
		participantFixture(2, "Борис", 1),
	}
	progress := map[uint]*ProgressRecord{
		1: {Score: 5, ElapsedTimeMs: 8000, WrongCount: 2},
		2: {Score: 5, ElapsedTimeMs: 12000, WrongCount: 0},
	}

	// Act
	ranking := ComputeRanking(roster, progress, 5000)

	// Assert
	assert.Equal(t, uint(2), ranking[0].UserID, "Штраф за неверные ответы должен входить в эффективное время")
	assert.Equal(t, int64(12000), ranking[0].EffectiveTimeMs)
	assert.Equal(t, int64(18000), ranking[1].EffectiveTimeMs, "8000 + 2*5000 штрафа")
}

func TestComputeRanking_WrongCountTieBreak(t *testing.T) {
	// Arrange: счет и эффективное время совпадают, различие только
	// в числе неверных ответов
	roster := []*Participant{
		participantFixture(1, "Аня", 0),
		participantFixture(2, "Борис", 1),
	}
	progress := map[uint]*ProgressRecord{
		1: {Score: 5, ElapsedTimeMs: 5000, WrongCount: 1},
		2: {Score: 5, ElapsedTimeMs: 10000, WrongCount: 0},
	}

	// Act: штраф 5000 мс уравнивает эффективное время (10000 у обоих)
	ranking := ComputeRanking(roster, progress, 5000)

	// Assert
	assert.Equal(t, int64(10000), ranking[0].EffectiveTimeMs)
	assert.Equal(t, int64(10000), ranking[1].EffectiveTimeMs)
	assert.Equal(t, uint(2), ranking[0].UserID, "При равном времени выше тот, у кого меньше ошибок")
}

func TestComputeRanking_JoinOrderIsFinalTieBreak(t *testing.T) {
	// Arrange: полностью идентичный прогресс, ростер нарочно не
	// в порядке входа
	roster := []*Participant{
		participantFixture(3, "Вера", 2),
		participantFixture(1, "Аня", 0),
		participantFixture(2, "Борис", 1),
	}
	progress := map[uint]*ProgressRecord{
		1: {Score: 2, ElapsedTimeMs: 4000},
		2: {Score: 2, ElapsedTimeMs: 4000},
		3: {Score: 2, ElapsedTimeMs: 4000},
	}

	// Act
	ranking := ComputeRanking(roster, progress, 5000)

	// Assert: порядок входа в комнату, а не порядок среза
	assert.Equal(t, uint(1), ranking[0].UserID)
	assert.Equal(t, uint(2), ranking[1].UserID)
	assert.Equal(t, uint(3), ranking[2].UserID)
}

func TestComputeRanking_MissingProgressTreatedAsZero(t *testing.T) {
	// Arrange: участник вошел, но не прислал ни одного события
	roster := []*Participant{
		participantFixture(1, "Аня", 0),
		participantFixture(2, "Борис", 1),
	}
	progress := map[uint]*ProgressRecord{
		1: {Score: 1, ElapsedTimeMs: 3000},
	}

	// Act
	ranking := ComputeRanking(roster, progress, 5000)

	// Assert
	assert.Len(t, ranking, 2, "Участник без прогресса остается в рейтинге")
	assert.Equal(t, uint(2), ranking[1].UserID)
	assert.Equal(t, 0, ranking[1].Score)
	assert.Equal(t, int64(0), ranking[1].EffectiveTimeMs)
	assert.False(t, ranking[1].Finished)
}

func TestComputeRanking_Deterministic(t *testing.T) {
	// Arrange
	roster := []*Participant{
		participantFixture(1, "Аня", 0),
		participantFixture(2, "Борис", 1),
		participantFixture(3, "Вера", 2),
	}
	progress := map[uint]*ProgressRecord{
		1: {Score: 4, ElapsedTimeMs: 7000, WrongCount: 1},
		2: {Score: 4, ElapsedTimeMs: 7000, WrongCount: 1},
		3: {Score: 9, ElapsedTimeMs: 20000},
	}

	// Act: один снимок - один и тот же порядок на каждом вызове
	first := ComputeRanking(roster, progress, 5000)
	for i := 0; i < 10; i++ {
		again := ComputeRanking(roster, progress, 5000)
		// Assert
		assert.Equal(t, first, again, "Рейтинг по одному снимку должен быть детерминирован")
	}
}

func TestComputeRanking_EmptyRoster(t *testing.T) {
	// Act
	ranking := ComputeRanking(nil, map[uint]*ProgressRecord{}, 5000)

	// Assert
	assert.NotNil(t, ranking)
	assert.Empty(t, ranking)
}
