package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"rental_service/domain"
	application "rental_service/service"
)

func TestAddHome(t *testing.T) {
	ctx := context.Background()
	input := domain.HomeInput{HouseName: "Casa Azul", Price: 80, Location: "Porto", Rating: 4.26}

	t.Run("ok, stores photos and rules and rounds the rating", func(t *testing.T) {
		f := newFixture(t)
		host := f.signup(t, "host@example.com", domain.Host)
		rules := pdfUpload()

		home, err := f.listings.AddHome(ctx, host, input, []domain.Upload{pngUpload(t), pngUpload(t)}, &rules)
		must(t, err)

		if home.Rating != 4.3 {
			t.Errorf("expected rating 4.3, got %v", home.Rating)
		}
		if len(home.Photos) != 2 || home.PhotoURL != home.Photos[0] {
			t.Errorf("unexpected photos %v / %q", home.Photos, home.PhotoURL)
		}
		if home.HouseRulePdf != "/api/store/rules/"+home.ID {
			t.Errorf("unexpected rules link %q", home.HouseRulePdf)
		}
		if home.HostID != host.User.ID {
			t.Errorf("expected host %s, got %s", host.User.ID, home.HostID)
		}
		if f.files.Len() != 3 {
			t.Errorf("expected 3 stored files, got %d", f.files.Len())
		}
	})

	t.Run("fail, listing without a photo", func(t *testing.T) {
		f := newFixture(t)
		host := f.signup(t, "host@example.com", domain.Host)

		_, err := f.listings.AddHome(ctx, host, input, nil, nil)
		if !errors.Is(err, domain.ErrMissingRequiredAsset) {
			t.Fatalf("expected ErrMissingRequiredAsset, got %v", err)
		}
	})

	t.Run("fail, guests cannot add listings", func(t *testing.T) {
		f := newFixture(t)
		guest := f.signup(t, "guest@example.com", domain.Guest)

		_, err := f.listings.AddHome(ctx, guest, input, []domain.Upload{pngUpload(t)}, nil)
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if f.files.Len() != 0 {
			t.Fatal("file was written")
		}
	})

	t.Run("fail, invalid fields", func(t *testing.T) {
		f := newFixture(t)
		host := f.signup(t, "host@example.com", domain.Host)
		tests := map[string]domain.HomeInput{
			"zero price":    {HouseName: "A", Price: 0, Location: "Porto", Rating: 3},
			"no name":       {Price: 10, Location: "Porto", Rating: 3},
			"rating over 5": {HouseName: "A", Price: 10, Location: "Porto", Rating: 5.5},
		}
		for name, input := range tests {
			t.Run(name, func(t *testing.T) {
				_, err := f.listings.AddHome(ctx, host, input, []domain.Upload{pngUpload(t)}, nil)
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
			})
		}
	})

	t.Run("fail, storage failure writes no listing", func(t *testing.T) {
		f := newFixture(t)
		host := f.signup(t, "host@example.com", domain.Host)
		f.files.failStore = true

		_, err := f.listings.AddHome(ctx, host, input, []domain.Upload{pngUpload(t)}, nil)
		if !errors.Is(err, domain.ErrStorage) {
			t.Fatalf("expected ErrStorage, got %v", err)
		}
		page, err := f.listings.ListHomes(ctx, 1, 10, "")
		must(t, err)
		if page.Total != 0 {
			t.Fatal("listing was written")
		}
	})
}

func TestEditHome(t *testing.T) {
	ctx := context.Background()

	t.Run("ok, replacing photos deletes the previous files", func(t *testing.T) {
		f := newFixture(t)
		host := f.signup(t, "host@example.com", domain.Host)
		home := f.addHome(t, host, "Casa")
		price := 150.0

		edited, err := f.listings.EditHome(ctx, host, home.ID, domain.HomePatch{Price: &price}, []domain.Upload{pngUpload(t)}, nil)
		must(t, err)

		if edited.Price != 150 || edited.HouseName != "Casa" {
			t.Fatalf("unexpected listing %+v", edited)
		}
		if edited.Photos[0] == home.Photos[0] {
			t.Fatal("photo was not replaced")
		}
		if f.files.Len() != 1 {
			t.Fatalf("expected old photo deleted, %d files remain", f.files.Len())
		}
	})

	t.Run("ok, replacing the rules document deletes the previous file", func(t *testing.T) {
		f := newFixture(t)
		host := f.signup(t, "host@example.com", domain.Host)
		rules := pdfUpload()
		home, err := f.listings.AddHome(ctx, host, domain.HomeInput{HouseName: "Casa", Price: 90, Location: "Faro"}, []domain.Upload{pngUpload(t)}, &rules)
		must(t, err)
		homeID, err := primitive.ObjectIDFromHex(home.ID)
		must(t, err)
		stored, err := f.homes.Get(ctx, homeID)
		must(t, err)
		oldRules := *stored.Rules
		filesBefore := f.files.Len()

		replacement := pdfUpload()
		replacement.Content = []byte("%PDF-1.4\n%new rules\n")
		_, err = f.listings.EditHome(ctx, host, home.ID, domain.HomePatch{}, nil, &replacement)
		must(t, err)

		if f.files.Len() != filesBefore {
			t.Fatalf("expected %d stored files, got %d", filesBefore, f.files.Len())
		}
		if _, err := f.files.Resolve(ctx, oldRules); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("old rules document still resolves: %v", err)
		}
		content, _, err := f.listings.RulesDocument(ctx, home.ID)
		must(t, err)
		if string(content) != string(replacement.Content) {
			t.Fatalf("unexpected rules document %q", content)
		}
	})

	t.Run("ok, fields only keeps the photos", func(t *testing.T) {
		f := newFixture(t)
		host := f.signup(t, "host@example.com", domain.Host)
		home := f.addHome(t, host, "Casa")
		name := "Casa Nova"

		edited, err := f.listings.EditHome(ctx, host, home.ID, domain.HomePatch{HouseName: &name}, nil, nil)
		must(t, err)
		if edited.HouseName != name || edited.Photos[0] != home.Photos[0] {
			t.Fatalf("unexpected listing %+v", edited)
		}
	})

	t.Run("fail, another host's listing", func(t *testing.T) {
		f := newFixture(t)
		owner := f.signup(t, "owner@example.com", domain.Host)
		other := f.signup(t, "other@example.com", domain.Host)
		home := f.addHome(t, owner, "Casa")
		name := "Mine now"

		_, err := f.listings.EditHome(ctx, other, home.ID, domain.HomePatch{HouseName: &name}, nil, nil)
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("fail, unknown listing", func(t *testing.T) {
		f := newFixture(t)
		host := f.signup(t, "host@example.com", domain.Host)
		name := "x"

		_, err := f.listings.EditHome(ctx, host, primitive.NewObjectID().Hex(), domain.HomePatch{HouseName: &name}, nil, nil)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDeleteHome(t *testing.T) {
	ctx := context.Background()

	t.Run("ok, removes files and every reference", func(t *testing.T) {
		f := newFixture(t)
		host := f.signup(t, "host@example.com", domain.Host)
		guest := f.signup(t, "guest@example.com", domain.Guest)
		rules := pdfUpload()
		home, err := f.listings.AddHome(ctx, host, domain.HomeInput{HouseName: "Casa", Price: 90, Location: "Faro", Rating: 4}, []domain.Upload{pngUpload(t)}, &rules)
		must(t, err)
		must(t, f.store.AddFavourite(ctx, guest, home.ID))
		must(t, f.store.AddBooking(ctx, guest, home.ID))

		must(t, f.listings.DeleteHome(ctx, host, home.ID))

		if _, err := f.listings.GetHome(ctx, home.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("listing still exists: %v", err)
		}
		if f.files.Len() != 0 {
			t.Fatalf("expected every file deleted, %d remain", f.files.Len())
		}
		user := f.user(t, guest)
		if len(user.Favourites) != 0 || len(user.Bookings) != 0 {
			t.Fatalf("dangling references %v / %v", user.Favourites, user.Bookings)
		}
	})

	t.Run("ok, failed reference cleanup is retried in the background", func(t *testing.T) {
		f := newFixture(t)
		host := f.signup(t, "host@example.com", domain.Host)
		guest := f.signup(t, "guest@example.com", domain.Guest)
		home := f.addHome(t, host, "Casa")
		must(t, f.store.AddFavourite(ctx, guest, home.ID))
		f.users.pullFailures = 2

		must(t, f.listings.DeleteHome(ctx, host, home.ID))
		f.cleaner.Wait()

		if favourites := f.user(t, guest).Favourites; len(favourites) != 0 {
			t.Fatalf("reference survived the retries: %v", favourites)
		}
	})

	t.Run("fail, file deletion error keeps the listing", func(t *testing.T) {
		f := newFixture(t)
		host := f.signup(t, "host@example.com", domain.Host)
		home := f.addHome(t, host, "Casa")
		f.files.failDelete = true

		err := f.listings.DeleteHome(ctx, host, home.ID)
		if !errors.Is(err, domain.ErrStorage) {
			t.Fatalf("expected ErrStorage, got %v", err)
		}
		if _, err := f.listings.GetHome(ctx, home.ID); err != nil {
			t.Fatalf("listing should remain: %v", err)
		}
	})

	t.Run("fail, guest session", func(t *testing.T) {
		f := newFixture(t)
		host := f.signup(t, "host@example.com", domain.Host)
		guest := f.signup(t, "guest@example.com", domain.Guest)
		home := f.addHome(t, host, "Casa")

		if err := f.listings.DeleteHome(ctx, guest, home.ID); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestListHomes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	host := f.signup(t, "host@example.com", domain.Host)
	for i := 0; i < 5; i++ {
		f.addHome(t, host, fmt.Sprintf("Casa %d", i))
	}

	t.Run("ok, pages newest first", func(t *testing.T) {
		page, err := f.listings.ListHomes(ctx, 2, 2, "")
		must(t, err)

		if page.Total != 5 || page.TotalPages != 3 || len(page.Homes) != 2 {
			t.Fatalf("unexpected page %+v", page)
		}
		if page.Homes[0].HouseName != "Casa 2" || page.Homes[1].HouseName != "Casa 1" {
			t.Fatalf("unexpected order %s, %s", page.Homes[0].HouseName, page.Homes[1].HouseName)
		}
	})

	t.Run("ok, limit is clamped", func(t *testing.T) {
		page, err := f.listings.ListHomes(ctx, 0, 1000, "")
		must(t, err)
		if page.Page != 1 || page.Limit != application.MaxPageLimit {
			t.Fatalf("unexpected paging %d/%d", page.Page, page.Limit)
		}
	})

	t.Run("ok, filters by location", func(t *testing.T) {
		page, err := f.listings.ListHomes(ctx, 1, 10, "lis")
		must(t, err)
		if page.Total != 5 {
			t.Fatalf("expected every Lisbon listing, got %d", page.Total)
		}
		page, err = f.listings.ListHomes(ctx, 1, 10, "Madrid")
		must(t, err)
		if page.Total != 0 || len(page.Homes) != 0 {
			t.Fatalf("expected no listings, got %d", page.Total)
		}
	})

	t.Run("ok, host listings only include their own", func(t *testing.T) {
		other := f.signup(t, "other@example.com", domain.Host)
		f.addHome(t, other, "Elsewhere")

		homes, err := f.listings.ListHostHomes(ctx, other)
		must(t, err)
		if len(homes) != 1 || homes[0].HouseName != "Elsewhere" {
			t.Fatalf("unexpected host listings %+v", homes)
		}
	})
}

func TestRulesDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	host := f.signup(t, "host@example.com", domain.Host)
	rules := pdfUpload()
	withRules, err := f.listings.AddHome(ctx, host, domain.HomeInput{HouseName: "Casa", Price: 90, Location: "Faro"}, []domain.Upload{pngUpload(t)}, &rules)
	must(t, err)
	withoutRules := f.addHome(t, host, "Plain")

	content, contentType, err := f.listings.RulesDocument(ctx, withRules.ID)
	must(t, err)
	if contentType != "application/pdf" || string(content) != string(rules.Content) {
		t.Fatalf("unexpected document %q %q", contentType, content)
	}

	if _, _, err := f.listings.RulesDocument(ctx, withoutRules.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHostListingLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	host := f.signup(t, "host@example.com", domain.Host)
	guest := f.signup(t, "guest@example.com", domain.Guest)

	home := f.addHome(t, host, "Casa do Mar")

	page, err := f.listings.ListHomes(ctx, 1, 10, "")
	must(t, err)
	if page.Total != 1 || page.Homes[0].ID != home.ID {
		t.Fatalf("new listing not visible: %+v", page)
	}

	must(t, f.store.AddBooking(ctx, guest, home.ID))
	requests, err := f.store.BookingRequests(ctx, host)
	must(t, err)
	if len(requests) != 1 || requests[0].Guest.Email != "guest@example.com" {
		t.Fatalf("unexpected booking requests %+v", requests)
	}

	must(t, f.listings.DeleteHome(ctx, host, home.ID))

	bookings, err := f.store.Bookings(ctx, guest)
	must(t, err)
	if len(bookings) != 0 {
		t.Fatalf("deleted listing still booked: %+v", bookings)
	}
	page, err = f.listings.ListHomes(ctx, 1, 10, "")
	must(t, err)
	if page.Total != 0 {
		t.Fatal("deleted listing still listed")
	}
}
