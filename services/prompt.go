package services

import (
	"fmt"
	"strings"

	"tryonapi/models"
)

const feedbackHeader = "PREVIOUS USER FEEDBACK TO INCORPORATE:"

// Labels for the two-step base request, sent in front of each image.
const (
	ReferencePersonLabel = "IMAGE 1 - Reference person (use body, pose, skin tone):"
	GarmentLabel         = "IMAGE 2 - Garment to wear:"
)

// facePreservation is shared by both templates. Every line is a hard constraint.
const facePreservation = `ABSOLUTE REQUIREMENTS - FACE PRESERVATION (MOST CRITICAL):
1. The %[1]s's face MUST be 100%% IDENTICAL to the input photo - this is NON-NEGOTIABLE
2. PRESERVE EVERY FACIAL DETAIL EXACTLY:
   - Exact facial bone structure and shape (jawline, cheekbones, chin)
   - Exact eye shape, color, size, and spacing
   - Exact nose shape, size, and bridge
   - Exact lip shape, color, and size
   - Exact eyebrow shape, thickness, and arch
   - Exact skin tone, complexion, and any skin texture
   - ALL scars, moles, birthmarks, freckles, or blemishes in EXACT positions
   - Exact hairline, hair color, hair texture, hair style
   - Exact ear shape if visible
   - Any facial hair (beard, mustache) exactly as shown
3. The face should look like a PHOTOGRAPH of the SAME person, not a similar-looking person
4. DO NOT alter, beautify, or "improve" any facial features`

const partTemplate = `You are an EXPERT virtual fashion try-on system creating 100%% PHOTOREALISTIC images.

%[3]s

BODY & CLOTHING REQUIREMENTS:
5. Keep the exact same body shape, build, and proportions
6. Maintain the exact skin tone throughout the body
7. Only change the clothing to match the product image, keep everything else
8. The clothing should fit naturally on %[2]s body type with realistic fabric draping
9. Proper lighting and shadows on both face and clothing
10. Natural pose that shows the clothing well

OUTPUT REQUIREMENTS:
11. The output must look like a REAL PHOTOGRAPH taken with a professional camera
12. No AI artifacts, no smooth/plastic/synthetic skin, no uncanny valley effect
13. Clothing integrates seamlessly with the person

Generate a photorealistic image of this %[1]s wearing the clothing shown while preserving %[2]s EXACT face.`

const fullFitTemplate = `You are an EXPERT virtual fashion stylist creating complete outfit looks.

%[3]s

OUTFIT COMPLETION:
5. The %[1]s is wearing the uploaded TOP/UPPER garment - create a COMPLETE OUTFIT around it
6. Based on the top wear provided, generate matching:
   - Bottom wear (pants, jeans, skirt, etc.) that complements the top
   - Footwear that matches the overall style
7. The complete outfit should be fashionable and cohesive for %[2]s style
8. Maintain exact body shape and skin tone

OUTPUT REQUIREMENTS:
9. Full-body photorealistic image, professional fashion photoshoot quality
10. Natural lighting and environment
11. No AI artifacts, no smooth/plastic/synthetic skin, no uncanny effects

Generate a full-body photorealistic image of this %[1]s with the complete styled outfit while preserving %[2]s EXACT face.`

const basePartTemplate = `Create a photorealistic fashion image of a %[1]s wearing the garment from Image 2.

Reference Image 1 for: body proportions, pose, skin tone, hair style/color
Put the exact garment from Image 2 on this person.

%[2]s

Requirements:
- Photorealistic quality, no plastic-looking skin
- Natural fit and fabric draping
- Body proportions and skin tone matching Image 1
- Professional fashion photography style

Generate the try-on image.`

const baseFullFitTemplate = `Create a photorealistic full-body fashion image of a %[1]s wearing the outfit from Image 2.

Reference Image 1 for: body proportions, pose, skin tone, hair style/color
Take clothing from Image 2 and create a complete styled outfit with matching bottom wear and footwear.

%[2]s

Requirements:
- Photorealistic fashion photography quality, no plastic-looking skin
- Natural body posture and proportions matching Image 1
- Clothing fits naturally with realistic fabric draping
- Good lighting, full body visible

Generate the fashion image.`

// BuildPrompt returns the single-call try-on instruction. Feedback is appended
// after the template, the template text itself never changes.
func BuildPrompt(mode models.Mode, gender models.Gender, priorFeedback *string) string {
	face := fmt.Sprintf(facePreservation, gender.Word())
	template := partTemplate
	if mode == models.ModeFullFit {
		template = fullFitTemplate
	}
	prompt := fmt.Sprintf(template, gender.Word(), gender.Possessive(), face)
	return appendFeedback(prompt, priorFeedback)
}

// BuildBasePrompt is the step-a prompt of the two-step flow, the face gets swapped afterwards.
func BuildBasePrompt(mode models.Mode, gender models.Gender, priorFeedback *string) string {
	template := basePartTemplate
	if mode == models.ModeFullFit {
		template = baseFullFitTemplate
	}
	face := fmt.Sprintf(facePreservation, gender.Word())
	return appendFeedback(fmt.Sprintf(template, gender.Word(), face), priorFeedback)
}

func appendFeedback(prompt string, priorFeedback *string) string {
	if priorFeedback == nil || strings.TrimSpace(*priorFeedback) == "" {
		return prompt
	}
	return prompt + "\n\n" + feedbackHeader + "\n" + *priorFeedback
}

const StyleAdvicePrompt = `Analyze this fashion item and provide detailed styling recommendations for Indian consumers.

Return a JSON object with:
- "analysis": Detailed description of the item (type, style, color, material, occasion)
- "stylingTips": Array of 4-5 specific styling tips for this item
- "complementaryItems": Array of 4-5 complementary items to complete the outfit, each with:
  - "type": Category (e.g., "Jeans", "Trousers", "Sneakers", "Watch", "Sunglasses")
  - "description": Specific product recommendation (e.g., "Slim fit dark blue denim jeans")
  - "color": Recommended color
  - "priceRange": Price range in INR (e.g., "₹1,500 - ₹3,000")
  - "searchQuery": Search term for Indian e-commerce sites (e.g., "slim fit blue jeans men")

Focus on:
- Indian fashion trends and sensibilities
- Mix of budget and premium options
- Items available on Myntra, Ajio, Amazon India

Return ONLY the JSON object, no other text.`
