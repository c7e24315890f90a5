package models

import (
	"time"
)

// Priority orders tasks from least to most pressing.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

// TaskType is the discriminator tag carried by every task record.
const TaskType = "Task"

// Task is a node in the task forest. SubTasks form a tree; ParentID points
// back at the task whose SubTasks sequence contains this task.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedDate time.Time  `json:"createdDate"`
	ParentID    string     `json:"parentId,omitempty"`
	SubTasks    []*Task    `json:"subTasks"`
	Type        string     `json:"type"`
}

// TaskSortKey selects the field Sort orders the root-level tasks by.
type TaskSortKey string

const (
	TaskSortPriority    TaskSortKey = "priority"
	TaskSortDueDate     TaskSortKey = "dueDate"
	TaskSortCreatedDate TaskSortKey = "createdDate"
)
