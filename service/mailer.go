package application

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"gopkg.in/gomail.v2"
	"rental_service/domain"
)

type WelcomeMailer interface {
	SendWelcome(user *domain.User)
}

type SMTPMailer struct {
	from   string
	send   func(m *gomail.Message) error
	cb     *gobreaker.CircuitBreaker
	logger *logrus.Logger
	wg     sync.WaitGroup
}

func NewSMTPMailer(host string, port int, username, password, from string, logger *logrus.Logger) *SMTPMailer {
	dialer := gomail.NewDialer(host, port, username, password)
	return &SMTPMailer{
		from:   from,
		send:   func(m *gomail.Message) error { return dialer.DialAndSend(m) },
		cb:     CircuitBreaker("welcomeMailer", logger),
		logger: logger,
	}
}

// SendWelcome mails the new account in the background. Failures are only logged.
func (m *SMTPMailer) SendWelcome(user *domain.User) {
	email := strings.TrimSpace(user.Email)
	if email == "" {
		return
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "Welcome aboard")
	msg.SetBody("text/plain", fmt.Sprintf("Hi %s,\n\nyour %s account is ready.", user.FirstName, user.UserType))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_, err := m.cb.Execute(func() (interface{}, error) {
			return nil, m.send(msg)
		})
		if err != nil {
			m.logger.Warnf("welcome mail to %s not sent: %v", email, err)
			return
		}
		m.logger.Infof("welcome mail sent to %s", email)
	}()
}

func (m *SMTPMailer) Wait() {
	m.wg.Wait()
}

func CircuitBreaker(name string, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(
		gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     10 * time.Second,
			Interval:    0,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 2
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warnf("circuit breaker '%s' changed from '%s' to '%s'", name, from, to)
			},
		},
	)
}
