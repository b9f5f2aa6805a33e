package testing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/Susanoo/models"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB

	seq int
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// NextPhone returns a distinct, dialable US number on each call
func (tf *TestFixtures) NextPhone() string {
	tf.seq++
	return fmt.Sprintf("+1415555%04d", tf.seq)
}

// CreateContact inserts a contact with the given phone
func (tf *TestFixtures) CreateContact(ownerID uint, phone string, optedOut bool) (*models.Contact, error) {
	tf.seq++
	contact := &models.Contact{
		OwnerID:  ownerID,
		Name:     fmt.Sprintf("Contact %d", tf.seq),
		Phone:    phone,
		Email:    fmt.Sprintf("contact%d@example.com", tf.seq),
		OptedOut: optedOut,
	}
	if err := tf.DB.DB.Create(contact).Error; err != nil {
		return nil, fmt.Errorf("failed to create test contact: %w", err)
	}
	return contact, nil
}

// CreateBatch inserts a batch holding snapshots of the given contacts
func (tf *TestFixtures) CreateBatch(ownerID uint, contacts []*models.Contact) (*models.Batch, error) {
	batch := &models.Batch{OwnerID: ownerID, Name: fmt.Sprintf("Batch %d", len(contacts)), ContactCount: len(contacts)}
	if err := tf.DB.DB.Create(batch).Error; err != nil {
		return nil, fmt.Errorf("failed to create test batch: %w", err)
	}

	members := make([]*models.BatchContact, 0, len(contacts))
	for _, c := range contacts {
		members = append(members, &models.BatchContact{
			BatchID:   batch.ID,
			ContactID: c.ID,
			Phone:     c.Phone,
			Name:      c.Name,
			Email:     c.Email,
		})
	}
	if len(members) > 0 {
		if err := tf.DB.DB.CreateInBatches(members, 100).Error; err != nil {
			return nil, fmt.Errorf("failed to create test batch members: %w", err)
		}
	}
	return batch, nil
}

// CreateValidBatch creates n valid contacts and a batch containing them all
func (tf *TestFixtures) CreateValidBatch(ownerID uint, n int) (*models.Batch, []*models.Contact, error) {
	contacts := make([]*models.Contact, 0, n)
	for range n {
		c, err := tf.CreateContact(ownerID, tf.NextPhone(), false)
		if err != nil {
			return nil, nil, err
		}
		contacts = append(contacts, c)
	}
	batch, err := tf.CreateBatch(ownerID, contacts)
	if err != nil {
		return nil, nil, err
	}
	return batch, contacts, nil
}

// CreateCampaign inserts a campaign linked to the given batches
func (tf *TestFixtures) CreateCampaign(ownerID uint, channel models.Channel, status models.CampaignStatus, description string, batchIDs ...uint) (*models.Campaign, error) {
	tf.seq++
	campaign := &models.Campaign{
		OwnerID:     ownerID,
		Name:        fmt.Sprintf("Campaign %d", tf.seq),
		Channel:     channel,
		Status:      status,
		Description: description,
	}
	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}
	for _, batchID := range batchIDs {
		link := &models.CampaignBatch{CampaignID: campaign.ID, BatchID: batchID}
		if err := tf.DB.DB.Create(link).Error; err != nil {
			return nil, fmt.Errorf("failed to link test batch: %w", err)
		}
	}
	return campaign, nil
}

// QueueContacts inserts campaign queue rows directly with the given status
func (tf *TestFixtures) QueueContacts(campaign *models.Campaign, contacts []*models.Contact, status models.CampaignContactStatus) ([]*models.CampaignContact, error) {
	rows := make([]*models.CampaignContact, 0, len(contacts))
	base := time.Now().UTC().Add(-time.Hour)
	for i, c := range contacts {
		rows = append(rows, &models.CampaignContact{
			OwnerID:    campaign.OwnerID,
			CampaignID: campaign.ID,
			ContactID:  c.ID,
			Status:     status,
			CreatedAt:  base.Add(time.Duration(i) * time.Millisecond),
		})
	}
	if len(rows) > 0 {
		if err := tf.DB.DB.CreateInBatches(rows, 100).Error; err != nil {
			return nil, fmt.Errorf("failed to queue test contacts: %w", err)
		}
	}
	return rows, nil
}

// EnqueueForProvider inserts scheduling queue rows for every contact of a batch
func (tf *TestFixtures) EnqueueForProvider(ownerID uint, batch *models.Batch, contacts []*models.Contact) error {
	rows := make([]*models.SchedulingQueueRow, 0, len(contacts))
	base := time.Now().UTC().Add(-time.Hour)
	for i, c := range contacts {
		payload, err := json.Marshal(models.QueuePayload{Number: c.Phone, Name: c.Name, Email: c.Email})
		if err != nil {
			return err
		}
		rows = append(rows, &models.SchedulingQueueRow{
			OwnerID:   ownerID,
			BatchID:   batch.ID,
			ContactID: c.ID,
			Payload:   payload,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return tf.DB.DB.CreateInBatches(rows, 100).Error
}

// AddTerminalDelivery records a terminal provider outcome for a contact
func (tf *TestFixtures) AddTerminalDelivery(ownerID, campaignID, contactID uint, status string) (*models.DeliveryRecord, error) {
	record := &models.DeliveryRecord{
		OwnerID:    ownerID,
		CampaignID: campaignID,
		ContactID:  contactID,
		Channel:    models.ChannelCall,
		Status:     status,
		Terminal:   true,
	}
	if err := tf.DB.DB.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to create test delivery record: %w", err)
	}
	return record, nil
}
