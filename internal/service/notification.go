package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationOrderCreated   NotificationType = "ORDER_CREATED"
	NotificationOrderAccepted  NotificationType = "ORDER_ACCEPTED"
	NotificationOrderPicked    NotificationType = "ORDER_PICKED"
	NotificationOrderDelivered NotificationType = "ORDER_DELIVERED"
	NotificationOrderCancelled NotificationType = "ORDER_CANCELLED"
)

var statusNotifications = map[domain.OrderStatus]struct {
	Type    NotificationType
	Title   string
	Message string
}{
	domain.OrderStatusAccepted:  {NotificationOrderAccepted, "Ride Accepted", "%s accepted your ride"},
	domain.OrderStatusPicked:    {NotificationOrderPicked, "Ride Started", "%s has picked you up"},
	domain.OrderStatusDelivered: {NotificationOrderDelivered, "Ride Completed", "%s completed your ride"},
	domain.OrderStatusCancelled: {NotificationOrderCancelled, "Ride Cancelled", "%s cancelled your ride"},
}

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string
	Title       string
	Message     string
	Data        map[string]any
	CreatedAt   time.Time
}

// NotificationService delivers order notifications. Delivery is a structured log entry.
type NotificationService struct {
	logger logrus.FieldLogger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(logger logrus.FieldLogger) *NotificationService {
	return &NotificationService{logger: logger}
}

// NotifyOrderCreated notifies the cab's driver about a new booking.
func (s *NotificationService) NotifyOrderCreated(ctx context.Context, order *domain.OrderView) error {
	return s.send(ctx, Notification{
		Type:        NotificationOrderCreated,
		RecipientID: order.Cab.Driver.ID,
		Title:       "New Ride Request",
		Message: fmt.Sprintf("%s booked your cab. Pickup at (%.4f, %.4f)",
			order.Rider.Name, order.PickupLocation.Lat, order.PickupLocation.Lng),
		Data: map[string]any{
			"order_id": order.ID,
			"price":    order.Price,
			"distance": order.Distance,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyOrderStatusChanged notifies the rider that the driver moved the order.
func (s *NotificationService) NotifyOrderStatusChanged(ctx context.Context, order *domain.OrderView, previous domain.OrderStatus) error {
	template, ok := statusNotifications[order.Status]
	if !ok {
		return nil
	}

	return s.send(ctx, Notification{
		Type:        template.Type,
		RecipientID: order.UserID,
		Title:       template.Title,
		Message:     fmt.Sprintf(template.Message, order.Cab.Driver.Name),
		Data: map[string]any{
			"order_id":        order.ID,
			"previous_status": previous,
			"status":          order.Status,
		},
		CreatedAt: time.Now(),
	})
}

func (s *NotificationService) send(ctx context.Context, notification Notification) error {
	s.logger.WithFields(logrus.Fields{
		"type":      notification.Type,
		"recipient": notification.RecipientID,
		"title":     notification.Title,
		"data":      notification.Data,
	}).Info(notification.Message)
	return nil
}
