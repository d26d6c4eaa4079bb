package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueTypeHelpers(t *testing.T) {
	assert.True(t, IsKnownQueueType(QueueLK))
	assert.True(t, IsKnownQueueType(QueueEPGUProblem))
	assert.False(t, IsKnownQueueType("vk"))
	assert.False(t, IsKnownQueueType(""))

	assert.False(t, IsProblemQueue(QueueLK))
	assert.True(t, IsProblemQueue(QueueLKProblem))

	assert.Equal(t, QueueLKProblem, ProblemQueueFor(QueueLK))
	// Повторное добавление суффикса — no-op.
	assert.Equal(t, QueueLKProblem, ProblemQueueFor(QueueLKProblem))

	assert.Equal(t, QueueEPGU, BaseQueueFor(QueueEPGUProblem))
	assert.Equal(t, QueueEPGU, BaseQueueFor(QueueEPGU))
}

func TestEmployeeHasGroup(t *testing.T) {
	operator := Employee{Groups: []string{GroupLK, GroupMail}}
	assert.True(t, operator.HasGroup(GroupLK))
	assert.False(t, operator.HasGroup(GroupEscalation))

	admin := Employee{IsAdmin: true}
	assert.True(t, admin.HasGroup(GroupEscalation))
}
